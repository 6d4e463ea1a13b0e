// Package storage persists baselines, scans and drift reports.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/yairfalse/driftwatch/pkg/types"
)

// TimestampLayout names scan and report objects
const TimestampLayout = "20060102-150405"

const (
	baselinesPrefix = "baselines"
	scansPrefix     = "scans"
	reportsPrefix   = "reports"
	baselineFile    = "baseline.json"
)

// Store persists snapshots and reports per environment. Save methods return
// the location written to.
type Store interface {
	LoadBaseline(ctx context.Context, env string) (*types.Snapshot, bool, error)
	SaveBaseline(ctx context.Context, env string, snapshot *types.Snapshot) (string, error)
	SaveScan(ctx context.Context, env string, snapshot *types.Snapshot) (string, error)
	SaveReport(ctx context.Context, env string, report *types.DriftReport) (string, error)
	LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error)
}

// Clock supplies the timestamps used in object names
type Clock func() time.Time

// BaselineKey is where the baseline of env lives
func BaselineKey(env string) string {
	return path.Join(baselinesPrefix, env, baselineFile)
}

// ScanKey names a scan taken at t
func ScanKey(env string, t time.Time) string {
	return path.Join(scansPrefix, env, t.UTC().Format(TimestampLayout)+".json")
}

// ReportKey names a report written at t
func ReportKey(env string, t time.Time) string {
	return path.Join(reportsPrefix, env, t.UTC().Format(TimestampLayout)+".json")
}

func reportPrefix(env string) string {
	return path.Join(reportsPrefix, env) + "/"
}

// validateEnvironment rejects names that would escape their key prefix
func validateEnvironment(env string) error {
	if strings.TrimSpace(env) == "" {
		return fmt.Errorf("environment name is required")
	}
	if strings.ContainsAny(env, `/\`) || env == "." || env == ".." {
		return fmt.Errorf("invalid environment name %q", env)
	}
	return nil
}

func encode(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*types.Snapshot, error) {
	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

func decodeReport(data []byte) (*types.DriftReport, error) {
	var report types.DriftReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
