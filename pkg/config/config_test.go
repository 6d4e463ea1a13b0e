package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/driftwatch/pkg/types"
)

func writeConfig(t *testing.T, content string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	return v
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, []string{"dev", "staging", "prod"}, cfg.Environments)
	assert.Equal(t, types.RiskHigh, cfg.MinRiskLevel())
	assert.Equal(t, 24*time.Hour, cfg.Schedule.Interval)
	assert.Equal(t, 4, cfg.Scanner.Workers)
}

func TestLoadFrom_File(t *testing.T) {
	v := writeConfig(t, `
aws:
  region: eu-west-1
storage:
  backend: local
  base_path: /tmp/drift
alerts:
  sns_topic: arn:aws:sns:eu-west-1:123456789012:drift
  min_risk: medium
environments: [qa, prod]
schedule:
  interval: 1h
rules:
  resource_risk:
    eks: high
  critical_fields: [version]
pricing:
  ec2:
    - sku: m5.large
      hourly: 0.096
  nat_gateway: 0.05
`)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/drift", cfg.Storage.BasePath)
	assert.Equal(t, "arn:aws:sns:eu-west-1:123456789012:drift", cfg.Alerts.SNSTopic)
	assert.Equal(t, types.RiskMedium, cfg.MinRiskLevel())
	assert.Equal(t, []string{"qa", "prod"}, cfg.Environments)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval)
	require.NoError(t, cfg.Validate())

	rules := cfg.RiskRules()
	assert.Equal(t, types.RiskHigh, rules.ResourceRisk["eks"])
	assert.Equal(t, types.RiskCritical, rules.ResourceRisk["rds"])
	assert.Equal(t, []string{"version"}, rules.CriticalFields)

	rates := cfg.CostRates()
	assert.Equal(t, 0.096, rates.EC2["m5.large"])
	assert.Equal(t, 0.0104, rates.EC2["t3.micro"])
	assert.Equal(t, 0.05, rates.NATGateway)
}

func TestLoadFrom_LegacyEnvironmentVariables(t *testing.T) {
	t.Setenv("DRIFT_BUCKET", "legacy-bucket")
	t.Setenv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:1:alerts")
	t.Setenv("ENVIRONMENTS", "dev, prod")
	t.Setenv("AWS_REGION", "us-west-2")

	cfg, err := LoadFrom(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "legacy-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "arn:aws:sns:us-east-1:1:alerts", cfg.Alerts.SNSTopic)
	assert.Equal(t, []string{"dev", "prod"}, cfg.Environments)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"s3 without bucket", func(c *Config) {}, "storage.bucket"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "gcs" }, "unknown storage backend"},
		{"bad min risk", func(c *Config) { c.Storage.Bucket = "b"; c.Alerts.MinRisk = "severe" }, "alerts.min_risk"},
		{"no environments", func(c *Config) { c.Storage.Bucket = "b"; c.Environments = nil }, "environment"},
		{"zero concurrency", func(c *Config) { c.Storage.Bucket = "b"; c.Concurrency = 0 }, "concurrency"},
		{"zero scanner workers", func(c *Config) { c.Storage.Bucket = "b"; c.Scanner.Workers = 0 }, "scanner.workers"},
		{"bad rule level", func(c *Config) {
			c.Storage.Bucket = "b"
			c.Rules.ResourceRisk = map[string]types.RiskLevel{"ec2": "extreme"}
		}, "rules"},
		{"valid", func(c *Config) { c.Storage.Bucket = "b" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, cfg.ExpandPaths())
	assert.Equal(t, filepath.Join(home, ".driftwatch"), cfg.Storage.BasePath)
}
