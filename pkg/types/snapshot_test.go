package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *Snapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: &Snapshot{
				Environment: "prod",
				Timestamp:   "2024-01-01T00:00:00Z",
				Resources: ResourceSet{
					CategoryEC2: {{"instance_id": "i-1"}},
				},
			},
		},
		{
			name:     "empty resources",
			snapshot: &Snapshot{Environment: "dev"},
		},
		{
			name:     "missing environment",
			snapshot: &Snapshot{Timestamp: "t"},
			wantErr:  true,
		},
		{
			name: "null record",
			snapshot: &Snapshot{
				Environment: "dev",
				Resources:   ResourceSet{CategoryS3: {nil}},
			},
			wantErr: true,
		},
		{
			name:    "nil snapshot",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	original := &Snapshot{
		Environment: "prod",
		Timestamp:   "t1",
		Resources: ResourceSet{
			CategoryVPC: {{
				"vpc_id":  "vpc-1",
				"subnets": []any{map[string]any{"subnet_id": "s-1"}},
			}},
		},
	}

	clone := original.Clone()
	clone.Resources[CategoryVPC][0]["vpc_id"] = "vpc-2"
	clone.Resources[CategoryVPC][0]["subnets"].([]any)[0].(map[string]any)["subnet_id"] = "s-2"

	assert.Equal(t, "vpc-1", original.Resources[CategoryVPC][0]["vpc_id"])
	assert.Equal(t, "s-1", original.Resources[CategoryVPC][0]["subnets"].([]any)[0].(map[string]any)["subnet_id"])
	assert.Equal(t, 1, original.ResourceCount())
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	raw := `{"environment":"staging","timestamp":"20240101-000000","resources":{"ec2":[{"instance_id":"i-1","instance_type":"t3.micro"}],"rds":[]}}`

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))

	assert.Equal(t, "staging", snap.Environment)
	assert.Equal(t, "t3.micro", snap.Resources.Records(CategoryEC2)[0].String("instance_type"))
	assert.Empty(t, snap.Resources.Records(CategoryRDS))
	assert.Empty(t, snap.Resources.Records(CategoryLambda))
}
