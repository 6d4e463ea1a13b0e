package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yairfalse/driftwatch/internal/cost"
	"github.com/yairfalse/driftwatch/internal/risk"
	"github.com/yairfalse/driftwatch/pkg/types"
)

const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Config represents the complete driftwatch configuration
type Config struct {
	AWS          AWSConfig      `mapstructure:"aws"`
	Storage      StorageConfig  `mapstructure:"storage"`
	Alerts       AlertsConfig   `mapstructure:"alerts"`
	Environments []string       `mapstructure:"environments"`
	Concurrency  int            `mapstructure:"concurrency"`
	Scanner      ScannerConfig  `mapstructure:"scanner"`
	Schedule     ScheduleConfig `mapstructure:"schedule"`
	Server       ServerConfig   `mapstructure:"server"`
	Output       OutputConfig   `mapstructure:"output"`
	Logging      LoggingConfig  `mapstructure:"logging"`
	Rules        risk.Rules     `mapstructure:"rules"`
	Pricing      PricingConfig  `mapstructure:"pricing"`
}

// AWSConfig contains AWS SDK configuration
type AWSConfig struct {
	Region     string `mapstructure:"region"`
	Profile    string `mapstructure:"profile"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// StorageConfig selects where snapshots and reports are persisted
type StorageConfig struct {
	Backend  string        `mapstructure:"backend"`
	Bucket   string        `mapstructure:"bucket"`
	BasePath string        `mapstructure:"base_path"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // zero disables the in-memory cache
}

// AlertsConfig contains notification destinations
type AlertsConfig struct {
	SNSTopic     string `mapstructure:"sns_topic"`
	SlackWebhook string `mapstructure:"slack_webhook"`
	SlackChannel string `mapstructure:"slack_channel"`
	MinRisk      string `mapstructure:"min_risk"`
}

// ScannerConfig tunes resource discovery
type ScannerConfig struct {
	Workers int `mapstructure:"workers"`
}

// ScheduleConfig drives the watch command
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ServerConfig configures the HTTP trigger API
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SKURate prices one instance type or class. SKU names contain dots, which
// viper treats as key separators, so they are configured as a list.
type SKURate struct {
	SKU    string  `mapstructure:"sku"`
	Hourly float64 `mapstructure:"hourly"`
}

// PricingConfig overrides entries of the built-in rate table
type PricingConfig struct {
	EC2               []SKURate          `mapstructure:"ec2"`
	RDS               []SKURate          `mapstructure:"rds"`
	LambdaMemoryGB    map[string]float64 `mapstructure:"lambda_memory_gb"`
	NATGateway        float64            `mapstructure:"nat_gateway"`
	S3PerGBMonth      float64            `mapstructure:"s3_per_gb_month"`
	LambdaPerGBSecond float64            `mapstructure:"lambda_per_gb_second"`
	FargateVCPUHour   float64            `mapstructure:"fargate_vcpu_hour"`
	FargateGBHour     float64            `mapstructure:"fargate_gb_hour"`
}

// DefaultEnvironments is the environment list scanned by detect-all
var DefaultEnvironments = []string{"dev", "staging", "prod"}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region:     "us-east-1",
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			Backend:  BackendS3,
			BasePath: "~/.driftwatch",
			CacheTTL: 5 * time.Minute,
		},
		Alerts: AlertsConfig{
			MinRisk: string(types.RiskHigh),
		},
		Environments: append([]string(nil), DefaultEnvironments...),
		Concurrency:  1,
		Scanner: ScannerConfig{
			Workers: 4,
		},
		Schedule: ScheduleConfig{
			Interval: 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Output: OutputConfig{
			Format: "table",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads config file, environment and bound flags from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".driftwatch"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("DRIFTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the scheduled deployment are honoured alongside the
	// prefixed ones.
	v.BindEnv("storage.bucket", "DRIFTWATCH_STORAGE_BUCKET", "DRIFT_BUCKET")
	v.BindEnv("storage.backend", "DRIFTWATCH_STORAGE_BACKEND")
	v.BindEnv("storage.base_path", "DRIFTWATCH_STORAGE_BASE_PATH")
	v.BindEnv("alerts.sns_topic", "DRIFTWATCH_ALERTS_SNS_TOPIC", "SNS_TOPIC_ARN")
	v.BindEnv("alerts.slack_webhook", "DRIFTWATCH_ALERTS_SLACK_WEBHOOK", "SLACK_WEBHOOK_URL")
	v.BindEnv("alerts.min_risk", "DRIFTWATCH_ALERTS_MIN_RISK")
	v.BindEnv("aws.region", "DRIFTWATCH_AWS_REGION", "AWS_REGION")
	v.BindEnv("aws.profile", "DRIFTWATCH_AWS_PROFILE", "AWS_PROFILE")
	v.BindEnv("environments", "DRIFTWATCH_ENVIRONMENTS", "ENVIRONMENTS")
	v.BindEnv("logging.level", "DRIFTWATCH_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("logging.format", "DRIFTWATCH_LOGGING_FORMAT")
	v.BindEnv("schedule.interval", "DRIFTWATCH_SCHEDULE_INTERVAL")
	v.BindEnv("server.addr", "DRIFTWATCH_SERVER_ADDR")
	v.BindEnv("concurrency", "DRIFTWATCH_CONCURRENCY")
	v.BindEnv("scanner.workers", "DRIFTWATCH_SCANNER_WORKERS")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Environments = splitEnvironments(config.Environments)
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case BackendLocal:
		if c.Storage.BasePath == "" {
			return fmt.Errorf("storage.base_path is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (expected s3 or local)", c.Storage.Backend)
	}

	if _, err := types.ParseRiskLevel(c.Alerts.MinRisk); err != nil {
		return fmt.Errorf("alerts.min_risk: %w", err)
	}

	if len(c.Environments) == 0 {
		return fmt.Errorf("at least one environment is required")
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be at least 1")
	}

	if err := c.RiskRules().Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if err := c.CostRates().Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}

	return nil
}

// MinRiskLevel returns the parsed alert threshold, high when unset or invalid
func (c *Config) MinRiskLevel() types.RiskLevel {
	level, err := types.ParseRiskLevel(c.Alerts.MinRisk)
	if err != nil {
		return types.RiskHigh
	}
	return level
}

// RiskRules returns the built-in rules with configured overrides applied
func (c *Config) RiskRules() risk.Rules {
	return risk.DefaultRules().Merge(c.Rules)
}

// CostRates returns the built-in rates with configured overrides applied
func (c *Config) CostRates() cost.Rates {
	overrides := cost.Rates{
		EC2:               skuTable(c.Pricing.EC2),
		RDS:               skuTable(c.Pricing.RDS),
		LambdaMemoryGB:    c.Pricing.LambdaMemoryGB,
		NATGateway:        c.Pricing.NATGateway,
		S3PerGBMonth:      c.Pricing.S3PerGBMonth,
		LambdaPerGBSecond: c.Pricing.LambdaPerGBSecond,
		FargateVCPUHour:   c.Pricing.FargateVCPUHour,
		FargateGBHour:     c.Pricing.FargateGBHour,
	}
	return cost.DefaultRates().Merge(overrides)
}

// ExpandPaths expands home directory paths
func (c *Config) ExpandPaths() error {
	var err error
	c.Storage.BasePath, err = expandPath(c.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("failed to expand storage base path: %w", err)
	}
	return nil
}

func skuTable(rates []SKURate) map[string]float64 {
	if len(rates) == 0 {
		return nil
	}
	table := make(map[string]float64, len(rates))
	for _, r := range rates {
		table[r.SKU] = r.Hourly
	}
	return table
}

// splitEnvironments accepts both list and comma-separated forms
func splitEnvironments(in []string) []string {
	var out []string
	for _, item := range in {
		for _, env := range strings.Split(item, ",") {
			if env = strings.TrimSpace(env); env != "" {
				out = append(out, env)
			}
		}
	}
	return out
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path, err
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}
