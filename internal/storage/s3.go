package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/yairfalse/driftwatch/internal/logger"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// S3ClientInterface defines the S3 client methods we use
type S3ClientInterface interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store implements Store on a single S3 bucket
type S3Store struct {
	client S3ClientInterface
	bucket string
	clock  Clock
	logger logger.Logger
}

// NewS3Store creates a store writing to bucket
func NewS3Store(client S3ClientInterface, bucket string, log logger.Logger, clock Clock) (*S3Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &S3Store{client: client, bucket: bucket, clock: clock, logger: log}, nil
}

// LoadBaseline fetches the baseline of env. NoSuchKey is reported as absent.
func (s *S3Store) LoadBaseline(ctx context.Context, env string) (*types.Snapshot, bool, error) {
	if err := validateEnvironment(env); err != nil {
		return nil, false, err
	}

	data, found, err := s.get(ctx, BaselineKey(env))
	if err != nil || !found {
		return nil, false, err
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, fmt.Errorf("baseline for %s: %w", env, err)
	}
	return snapshot, true, nil
}

// SaveBaseline overwrites the baseline object of env
func (s *S3Store) SaveBaseline(ctx context.Context, env string, snapshot *types.Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", fmt.Errorf("invalid baseline: %w", err)
	}
	return s.put(ctx, env, BaselineKey(env), snapshot)
}

// SaveScan writes a scan under a timestamped key
func (s *S3Store) SaveScan(ctx context.Context, env string, snapshot *types.Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", fmt.Errorf("invalid snapshot: %w", err)
	}
	return s.put(ctx, env, ScanKey(env, s.clock()), snapshot)
}

// SaveReport writes a drift report under a timestamped key
func (s *S3Store) SaveReport(ctx context.Context, env string, report *types.DriftReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}
	return s.put(ctx, env, ReportKey(env, s.clock()), report)
}

// LatestReport returns the report with the greatest key under reports/<env>/
func (s *S3Store) LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error) {
	if err := validateEnvironment(env); err != nil {
		return nil, false, err
	}

	var latest string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(reportPrefix(env)),
	}

	for {
		result, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list reports for %s: %w", env, err)
		}

		for _, obj := range result.Contents {
			if key := aws.ToString(obj.Key); key > latest {
				latest = key
			}
		}

		if !aws.ToBool(result.IsTruncated) || result.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = result.NextContinuationToken
	}

	if latest == "" {
		return nil, false, nil
	}

	data, found, err := s.get(ctx, latest)
	if err != nil || !found {
		return nil, false, err
	}

	report, err := decodeReport(data)
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			s.logger.WithField("key", key).Debug("Object not found")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, true, nil
}

func (s *S3Store) put(ctx context.Context, env, key string, v interface{}) (string, error) {
	if err := validateEnvironment(env); err != nil {
		return "", err
	}

	data, err := encode(v)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.WithFields(map[string]interface{}{
		"environment": env,
		"key":         key,
	}).Debug("Stored object")
	return location, nil
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
