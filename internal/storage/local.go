package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yairfalse/driftwatch/pkg/types"
)

// DefaultBackupRetention is the number of replaced baselines kept on disk
const DefaultBackupRetention = 5

// LocalStore implements Store on the local filesystem using the same key
// layout as the S3 backend.
type LocalStore struct {
	baseDir string
	writer  *atomicWriter
	clock   Clock
}

// LocalOption configures a LocalStore
type LocalOption func(*LocalStore)

// WithLocalClock overrides the clock used to name scans and reports
func WithLocalClock(clock Clock) LocalOption {
	return func(s *LocalStore) { s.clock = clock }
}

// NewLocalStore creates a store rooted at baseDir
func NewLocalStore(baseDir string, opts ...LocalOption) (*LocalStore, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".driftwatch")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}

	s := &LocalStore{baseDir: baseDir, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = newAtomicWriter(filepath.Join(baseDir, "backups"), DefaultBackupRetention, s.clock)

	return s, nil
}

// BaseDir returns the store root
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// LoadBaseline reads the baseline of env. A missing file is reported as
// absent, not as an error.
func (s *LocalStore) LoadBaseline(ctx context.Context, env string) (*types.Snapshot, bool, error) {
	if err := validateEnvironment(env); err != nil {
		return nil, false, err
	}

	data, err := s.writer.ReadFile(s.pathFor(BaselineKey(env)))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read baseline for %s: %w", env, err)
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, fmt.Errorf("baseline for %s: %w", env, err)
	}
	return snapshot, true, nil
}

// SaveBaseline replaces the baseline of env
func (s *LocalStore) SaveBaseline(ctx context.Context, env string, snapshot *types.Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", fmt.Errorf("invalid baseline: %w", err)
	}
	return s.save(env, BaselineKey(env), snapshot)
}

// SaveScan stores a scan under a timestamped name
func (s *LocalStore) SaveScan(ctx context.Context, env string, snapshot *types.Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", fmt.Errorf("invalid snapshot: %w", err)
	}
	return s.save(env, ScanKey(env, s.clock()), snapshot)
}

// SaveReport stores a drift report under a timestamped name
func (s *LocalStore) SaveReport(ctx context.Context, env string, report *types.DriftReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}
	return s.save(env, ReportKey(env, s.clock()), report)
}

// LatestReport returns the most recently written report of env
func (s *LocalStore) LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error) {
	if err := validateEnvironment(env); err != nil {
		return nil, false, err
	}

	dir := s.pathFor(reportPrefix(env))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, false, nil
	}
	sort.Strings(names)

	data, err := s.writer.ReadFile(filepath.Join(dir, names[len(names)-1]))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read report: %w", err)
	}

	report, err := decodeReport(data)
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}

func (s *LocalStore) save(env, key string, v interface{}) (string, error) {
	if err := validateEnvironment(env); err != nil {
		return "", err
	}

	data, err := encode(v)
	if err != nil {
		return "", err
	}

	location := s.pathFor(key)
	if err := s.writer.WriteFile(location, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return location, nil
}

func (s *LocalStore) pathFor(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}
