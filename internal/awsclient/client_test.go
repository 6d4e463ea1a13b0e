package awsclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSTS struct {
	mock.Mock
}

func (m *mockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.GetCallerIdentityOutput), args.Error(1)
}

func TestCallerIdentity(t *testing.T) {
	ctx := context.Background()

	client := new(mockSTS)
	client.On("GetCallerIdentity", ctx, mock.Anything).Return(&sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/drift"),
	}, nil)

	identity, err := CallerIdentity(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", identity.Account)
	client.AssertExpectations(t)
}

func TestCallerIdentity_Errors(t *testing.T) {
	ctx := context.Background()

	failing := new(mockSTS)
	failing.On("GetCallerIdentity", ctx, mock.Anything).Return(nil, errors.New("InvalidClientTokenId"))
	_, err := CallerIdentity(ctx, failing)
	assert.ErrorContains(t, err, "InvalidClientTokenId")

	partial := new(mockSTS)
	partial.On("GetCallerIdentity", ctx, mock.Anything).Return(&sts.GetCallerIdentityOutput{}, nil)
	_, err = CallerIdentity(ctx, partial)
	assert.ErrorContains(t, err, "invalid identity")
}

func TestValidateCredentials(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		creds   aws.Credentials
		wantErr string
	}{
		{"valid static", aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret"}, ""},
		{"missing key", aws.Credentials{SecretAccessKey: "secret"}, "Access Key ID"},
		{"missing secret", aws.Credentials{AccessKeyID: "AKID"}, "Secret Access Key"},
		{"expired", aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "s", CanExpire: true, Expires: time.Now().Add(-time.Hour)}, "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := tt.creds
			cfg := aws.Config{Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return creds, nil
			})}
			err := ValidateCredentials(ctx, cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}

	assert.Error(t, ValidateCredentials(ctx, aws.Config{}))
}
