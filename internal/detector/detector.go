// Package detector runs the scan, compare, score, price, report and alert
// cycle for one or many environments.
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yairfalse/driftwatch/internal/cost"
	"github.com/yairfalse/driftwatch/internal/differ"
	"github.com/yairfalse/driftwatch/internal/logger"
	"github.com/yairfalse/driftwatch/internal/notifier"
	"github.com/yairfalse/driftwatch/internal/report"
	"github.com/yairfalse/driftwatch/internal/risk"
	"github.com/yairfalse/driftwatch/internal/storage"
	"github.com/yairfalse/driftwatch/pkg/types"
	"golang.org/x/sync/errgroup"
)

// ErrNoBaseline is returned by Detect when the environment has no baseline
var ErrNoBaseline = errors.New("no baseline found")

// Per-environment statuses reported by DetectAll
const (
	StatusNoBaseline    = "no_baseline"
	StatusDriftDetected = "drift_detected"
	StatusNoDrift       = "no_drift"
	StatusError         = "error"
)

// Observer is told about every finished Detect call. outcome is nil unless
// status is StatusDriftDetected or StatusNoDrift.
type Observer interface {
	ObserveDetection(env, status string, outcome *Outcome, elapsed time.Duration)
}

// Scanner captures the current state of an environment
type Scanner interface {
	Scan(ctx context.Context, env string) (*types.Snapshot, error)
}

// Options wires a Detector. Zero-valued components fall back to defaults.
type Options struct {
	Scanner     Scanner
	Store       storage.Store
	Differ      *differ.Differ
	Scorer      *risk.Scorer
	Estimator   *cost.Estimator
	Routes      []notifier.Route
	MinRisk     types.RiskLevel
	Concurrency int
	Logger      logger.Logger
	Observer    Observer
}

// Detector orchestrates drift detection
type Detector struct {
	scanner     Scanner
	store       storage.Store
	differ      *differ.Differ
	scorer      *risk.Scorer
	estimator   *cost.Estimator
	routes      []notifier.Route
	minRisk     types.RiskLevel
	concurrency int
	logger      logger.Logger
	observer    Observer
}

// Outcome is the result of a single Detect run
type Outcome struct {
	Environment    string
	Report         *types.DriftReport
	ReportLocation string
	ScanLocation   string
	AlertSent      bool
	MessageIDs     []string
}

// EnvironmentResult is one entry of a DetectAll run
type EnvironmentResult struct {
	Environment    string             `json:"environment" yaml:"environment"`
	Status         string             `json:"status" yaml:"status"`
	Risk           types.RiskLevel    `json:"risk,omitempty" yaml:"risk,omitempty"`
	AlertSent      *bool              `json:"alert_sent,omitempty" yaml:"alert_sent,omitempty"`
	ReportLocation string             `json:"report_location,omitempty" yaml:"report_location,omitempty"`
	Error          string             `json:"error,omitempty" yaml:"error,omitempty"`
	Report         *types.DriftReport `json:"-" yaml:"-"`
}

// New validates opts and builds a Detector
func New(opts Options) (*Detector, error) {
	if opts.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	d := &Detector{
		scanner:     opts.Scanner,
		store:       opts.Store,
		differ:      opts.Differ,
		scorer:      opts.Scorer,
		estimator:   opts.Estimator,
		routes:      opts.Routes,
		minRisk:     opts.MinRisk,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		observer:    opts.Observer,
	}
	if d.differ == nil {
		d.differ = differ.New(differ.Options{})
	}
	if d.scorer == nil {
		d.scorer = risk.NewDefaultScorer()
	}
	if d.estimator == nil {
		d.estimator = cost.NewDefaultEstimator()
	}
	if !d.minRisk.IsValid() {
		d.minRisk = types.RiskHigh
	}
	if d.concurrency < 1 {
		d.concurrency = 1
	}
	if d.logger == nil {
		d.logger = logger.NewNop()
	}
	return d, nil
}

// Scan captures env and stores the result as a scan
func (d *Detector) Scan(ctx context.Context, env string) (*types.Snapshot, string, error) {
	snapshot, err := d.scanner.Scan(ctx, env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan %s: %w", env, err)
	}

	location, err := d.store.SaveScan(ctx, env, snapshot)
	if err != nil {
		return nil, "", fmt.Errorf("failed to save scan for %s: %w", env, err)
	}

	d.logger.WithFields(map[string]interface{}{
		"environment": env,
		"key":         location,
	}).Info("Scan completed")
	return snapshot, location, nil
}

// Baseline captures env and stores the result as its new baseline
func (d *Detector) Baseline(ctx context.Context, env string) (*types.Snapshot, string, error) {
	snapshot, err := d.scanner.Scan(ctx, env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan %s: %w", env, err)
	}

	location, err := d.store.SaveBaseline(ctx, env, snapshot)
	if err != nil {
		return nil, "", fmt.Errorf("failed to save baseline for %s: %w", env, err)
	}

	d.logger.WithFields(map[string]interface{}{
		"environment": env,
		"key":         location,
	}).Info("Baseline created")
	return snapshot, location, nil
}

// Detect compares the current state of env against its baseline, stores the
// report and alerts the configured routes when drift is found. It returns
// ErrNoBaseline when env has never been baselined.
func (d *Detector) Detect(ctx context.Context, env string) (*Outcome, error) {
	started := time.Now()
	outcome, err := d.detect(ctx, env)
	if d.observer != nil {
		d.observer.ObserveDetection(env, statusOf(outcome, err), outcome, time.Since(started))
	}
	return outcome, err
}

func (d *Detector) detect(ctx context.Context, env string) (*Outcome, error) {
	log := d.logger.WithField("environment", env)
	log.Info("Drift detection started")

	baseline, found, err := d.store.LoadBaseline(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline for %s: %w", env, err)
	}
	if !found {
		log.Warn("Baseline not found")
		return nil, fmt.Errorf("%s: %w", env, ErrNoBaseline)
	}

	current, scanLocation, err := d.Scan(ctx, env)
	if err != nil {
		return nil, err
	}

	driftReport := d.Evaluate(baseline, current)

	reportLocation, err := d.store.SaveReport(ctx, env, driftReport)
	if err != nil {
		return nil, fmt.Errorf("failed to save report for %s: %w", env, err)
	}

	outcome := &Outcome{
		Environment:    env,
		Report:         driftReport,
		ReportLocation: reportLocation,
		ScanLocation:   scanLocation,
	}

	if driftReport.DriftDetected {
		log.WithField("risk", string(driftReport.RiskAssessment.OverallRisk)).Warn("Drift detected")
		for _, route := range d.routes {
			id, sent := route.Notifier.Notify(ctx, driftReport, route.Destination, d.minRisk)
			if sent {
				outcome.AlertSent = true
				if id != "" {
					outcome.MessageIDs = append(outcome.MessageIDs, id)
				}
			}
		}
	} else {
		log.Info("No drift")
	}

	return outcome, nil
}

// Evaluate runs the pure comparison pipeline on two snapshots. Cost is only
// estimated when drift exists.
func (d *Detector) Evaluate(baseline, current *types.Snapshot) *types.DriftReport {
	result := d.differ.Compare(baseline, current)
	assessment := d.scorer.Score(result)

	var impact types.CostImpact
	if result.DriftDetected {
		impact = d.estimator.Estimate(resourcesOf(baseline), resourcesOf(current))
	}

	return report.Assemble(result, assessment, impact)
}

// resourcesOf treats a nil snapshot as empty
func resourcesOf(s *types.Snapshot) types.ResourceSet {
	if s == nil {
		return nil
	}
	return s.Resources
}

// DetectAll runs Detect for every environment and reports a status per
// environment. Missing baselines and per-environment failures do not stop
// the run; only cancellation of ctx does.
func (d *Detector) DetectAll(ctx context.Context, envs []string) ([]EnvironmentResult, error) {
	results := make([]EnvironmentResult, len(envs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i, env := range envs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.detectOne(gctx, env)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Detector) detectOne(ctx context.Context, env string) EnvironmentResult {
	outcome, err := d.Detect(ctx, env)
	status := statusOf(outcome, err)

	switch status {
	case StatusNoBaseline:
		return EnvironmentResult{Environment: env, Status: status}
	case StatusError:
		d.logger.WithField("environment", env).Error("Drift detection failed", err)
		return EnvironmentResult{Environment: env, Status: status, Error: err.Error()}
	case StatusDriftDetected:
		sent := outcome.AlertSent
		return EnvironmentResult{
			Environment:    env,
			Status:         status,
			Risk:           outcome.Report.RiskAssessment.OverallRisk,
			AlertSent:      &sent,
			ReportLocation: outcome.ReportLocation,
			Report:         outcome.Report,
		}
	default:
		return EnvironmentResult{
			Environment:    env,
			Status:         status,
			ReportLocation: outcome.ReportLocation,
			Report:         outcome.Report,
		}
	}
}

func statusOf(outcome *Outcome, err error) string {
	switch {
	case errors.Is(err, ErrNoBaseline):
		return StatusNoBaseline
	case err != nil:
		return StatusError
	case outcome.Report.DriftDetected:
		return StatusDriftDetected
	default:
		return StatusNoDrift
	}
}

// LatestReport returns the most recent stored report for env
func (d *Detector) LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error) {
	return d.store.LatestReport(ctx, env)
}
