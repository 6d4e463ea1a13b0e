// Package aws discovers the resources of one environment, selected by the
// Environment tag, and captures them as a snapshot.
package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yairfalse/driftwatch/internal/logger"
	"github.com/yairfalse/driftwatch/pkg/types"
	"golang.org/x/sync/errgroup"
)

// EnvironmentTag is the tag key that assigns a resource to an environment
const EnvironmentTag = "Environment"

// DefaultWorkers bounds how many categories are scanned at once
const DefaultWorkers = 4

// Scanner captures environment snapshots from AWS
type Scanner struct {
	clients Clients
	region  string
	logger  logger.Logger
	clock   func() time.Time
	workers int
}

// Option configures a Scanner
type Option func(*Scanner)

// WithClock overrides the clock used for snapshot timestamps
func WithClock(clock func() time.Time) Option {
	return func(s *Scanner) { s.clock = clock }
}

// WithWorkers sets how many categories are scanned concurrently
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger for per-category warnings
func WithLogger(log logger.Logger) Option {
	return func(s *Scanner) { s.logger = log }
}

// NewScanner creates a scanner for region
func NewScanner(clients Clients, region string, opts ...Option) *Scanner {
	s := &Scanner{
		clients: clients,
		region:  region,
		logger:  logger.NewNop(),
		clock:   time.Now,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type categoryScan struct {
	category types.Category
	scan     func(ctx context.Context, env string) ([]types.Record, error)
}

// Scan captures every category for env, up to workers categories at a time.
// A failing category is logged and recorded as empty; only cancellation of
// ctx fails the scan.
func (s *Scanner) Scan(ctx context.Context, env string) (*types.Snapshot, error) {
	if strings.TrimSpace(env) == "" {
		return nil, fmt.Errorf("environment name is required")
	}

	log := s.logger.WithField("environment", env)
	log.Info("Scanning environment")

	scans := []categoryScan{
		{types.CategoryVPC, s.scanVPCs},
		{types.CategoryEC2, s.scanInstances},
		{types.CategoryRDS, s.scanDBInstances},
		{types.CategoryS3, s.scanBuckets},
		{types.CategoryLambda, s.scanFunctions},
		{types.CategoryECS, s.scanServices},
	}

	snapshot := &types.Snapshot{
		Environment: env,
		Timestamp:   s.clock().UTC().Format(time.RFC3339),
		Region:      s.region,
		Resources:   make(types.ResourceSet, len(scans)),
	}

	results := make([][]types.Record, len(scans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, c := range scans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("scan of %s cancelled: %w", env, err)
			}

			records, err := c.scan(gctx, env)
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("scan of %s cancelled: %w", env, ctx.Err())
				}
				log.WithField("category", string(c.category)).Warn(fmt.Sprintf("%s scan error: %v", c.category, err))
				records = nil
			}
			if records == nil {
				records = []types.Record{}
			}
			results[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, c := range scans {
		snapshot.Resources[c.category] = results[i]
	}

	log.WithField("resources", snapshot.ResourceCount()).Info("Scan completed")
	return snapshot, nil
}

func tagFilterName(key string) string {
	return "tag:" + key
}
