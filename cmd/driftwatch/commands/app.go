package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/yairfalse/driftwatch/internal/awsclient"
	"github.com/yairfalse/driftwatch/internal/cost"
	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/internal/differ"
	dwerrors "github.com/yairfalse/driftwatch/internal/errors"
	"github.com/yairfalse/driftwatch/internal/logger"
	"github.com/yairfalse/driftwatch/internal/metrics"
	"github.com/yairfalse/driftwatch/internal/notifier"
	"github.com/yairfalse/driftwatch/internal/risk"
	scanaws "github.com/yairfalse/driftwatch/internal/scanner/aws"
	"github.com/yairfalse/driftwatch/internal/storage"
	"github.com/yairfalse/driftwatch/pkg/config"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// driftService is the part of the detector the commands drive
type driftService interface {
	Scan(ctx context.Context, env string) (*types.Snapshot, string, error)
	Baseline(ctx context.Context, env string) (*types.Snapshot, string, error)
	Detect(ctx context.Context, env string) (*detector.Outcome, error)
	DetectAll(ctx context.Context, envs []string) ([]detector.EnvironmentResult, error)
	LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error)
}

type app struct {
	service     driftService
	logger      logger.Logger
	metrics     *metrics.Recorder
	alertTarget string
}

// newApp is swapped in tests
var newApp = buildApp

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	awsCfg, err := awsclient.LoadConfig(ctx, awsclient.ClientConfig{
		Region:     cfg.AWS.Region,
		Profile:    cfg.AWS.Profile,
		MaxRetries: cfg.AWS.MaxRetries,
	})
	if err != nil {
		if strings.Contains(err.Error(), "region") {
			return nil, dwerrors.AWSRegionError().Wrap(err)
		}
		return nil, dwerrors.AWSCredentialsError(err)
	}

	if err := awsclient.ValidateCredentials(ctx, awsCfg); err != nil {
		return nil, dwerrors.AWSCredentialsError(err)
	}

	identity, err := awsclient.CallerIdentity(ctx, awsclient.NewSTSClient(awsCfg))
	if err != nil {
		return nil, dwerrors.AWSCredentialsError(err)
	}
	log.WithFields(map[string]interface{}{
		"account": identity.Account,
		"region":  awsCfg.Region,
	}).Debug("AWS credentials resolved")

	var store storage.Store
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		store, err = storage.NewLocalStore(cfg.Storage.BasePath)
	default:
		store, err = storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Storage.Bucket, log, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Backend, err)
	}
	if cfg.Storage.CacheTTL > 0 {
		store = storage.NewCachedStore(store, cfg.Storage.CacheTTL)
	}

	var routes []notifier.Route
	var targets []string
	if cfg.Alerts.SNSTopic != "" {
		routes = append(routes, notifier.Route{
			Notifier:    notifier.New(notifier.NewSNSTransport(sns.NewFromConfig(awsCfg)), log),
			Destination: cfg.Alerts.SNSTopic,
		})
		targets = append(targets, "SNS topic")
	}
	if cfg.Alerts.SlackWebhook != "" {
		routes = append(routes, notifier.Route{
			Notifier:    notifier.New(notifier.NewSlackTransport(cfg.Alerts.SlackChannel, nil), log),
			Destination: cfg.Alerts.SlackWebhook,
		})
		targets = append(targets, "Slack")
	}

	recorder := metrics.NewRecorder()

	det, err := detector.New(detector.Options{
		Scanner:     scanaws.NewScanner(scanaws.NewClients(awsCfg), awsCfg.Region, scanaws.WithLogger(log), scanaws.WithWorkers(cfg.Scanner.Workers)),
		Store:       store,
		Differ:      differ.New(differ.Options{}),
		Scorer:      risk.NewScorer(cfg.RiskRules()),
		Estimator:   cost.NewEstimator(cfg.CostRates()),
		Routes:      routes,
		MinRisk:     cfg.MinRiskLevel(),
		Concurrency: cfg.Concurrency,
		Logger:      log,
		Observer:    recorder,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		service:     det,
		logger:      log,
		metrics:     recorder,
		alertTarget: strings.Join(targets, " and "),
	}, nil
}

func validateConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if cfg.Storage.Backend == config.BackendS3 && cfg.Storage.Bucket == "" {
		return dwerrors.BucketNotConfiguredError()
	}
	if err := cfg.Validate(); err != nil {
		return dwerrors.New(dwerrors.ErrorTypeConfiguration, dwerrors.ProviderUnknown, "Invalid configuration").
			WithCause(err.Error()).
			WithSolutions("driftwatch --config path/to/config.yaml", "Check config.yaml against the documented sections").
			Wrap(err)
	}
	return nil
}
