package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/driftwatch/pkg/types"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func body(s string) io.ReadCloser {
	return io.NopCloser(bytes.NewReader([]byte(s)))
}

func keyIs(key string) interface{} {
	return mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == key && aws.ToString(in.Bucket) == "drift-bucket"
	})
}

func TestS3Store_LoadBaseline(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3Client)
	client.On("GetObject", ctx, keyIs("baselines/prod/baseline.json")).Return(&s3.GetObjectOutput{
		Body: body(`{"environment":"prod","timestamp":"t0","resources":{"s3":[{"bucket_name":"logs"}]}}`),
	}, nil)

	store, err := NewS3Store(client, "drift-bucket", nil, nil)
	require.NoError(t, err)

	snapshot, found, err := store.LoadBaseline(ctx, "prod")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "logs", snapshot.Resources.Records(types.CategoryS3)[0].String("bucket_name"))
	client.AssertExpectations(t)
}

func TestS3Store_LoadBaseline_Missing(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3Client)
	client.On("GetObject", ctx, keyIs("baselines/dev/baseline.json")).Return(nil, &s3types.NoSuchKey{})

	store, err := NewS3Store(client, "drift-bucket", nil, nil)
	require.NoError(t, err)

	snapshot, found, err := store.LoadBaseline(ctx, "dev")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, snapshot)
}

func TestS3Store_LoadBaseline_AccessDenied(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3Client)
	client.On("GetObject", ctx, mock.Anything).Return(nil, errors.New("AccessDenied"))

	store, err := NewS3Store(client, "drift-bucket", nil, nil)
	require.NoError(t, err)

	_, found, err := store.LoadBaseline(ctx, "dev")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3Store_SaveScan(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	var written []byte
	client := new(mockS3Client)
	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "scans/dev/20240601-090000.json"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		written, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil)

	store, err := NewS3Store(client, "drift-bucket", nil, fixedClock(at))
	require.NoError(t, err)

	location, err := store.SaveScan(ctx, "dev", testSnapshot("dev"))
	require.NoError(t, err)
	assert.Equal(t, "s3://drift-bucket/scans/dev/20240601-090000.json", location)
	assert.Contains(t, string(written), "\"instance_type\": \"t3.micro\"")
	client.AssertExpectations(t)
}

func TestS3Store_SaveReport_Failure(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3Client)
	client.On("PutObject", ctx, mock.Anything).Return(nil, errors.New("throttled"))

	store, err := NewS3Store(client, "drift-bucket", nil, nil)
	require.NoError(t, err)

	_, err = store.SaveReport(ctx, "dev", &types.DriftReport{Environment: "dev"})
	assert.ErrorContains(t, err, "throttled")
}

func TestS3Store_LatestReport(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3Client)
	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil && aws.ToString(in.Prefix) == "reports/dev/"
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []s3types.Object{{Key: aws.String("reports/dev/20240101-000000.json")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page-2"),
	}, nil)
	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "page-2"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []s3types.Object{
			{Key: aws.String("reports/dev/20240301-000000.json")},
			{Key: aws.String("reports/dev/20240201-000000.json")},
		},
		IsTruncated: aws.Bool(false),
	}, nil)
	client.On("GetObject", ctx, keyIs("reports/dev/20240301-000000.json")).Return(&s3.GetObjectOutput{
		Body: body(`{"environment":"dev","summary":"march"}`),
	}, nil)

	store, err := NewS3Store(client, "drift-bucket", nil, nil)
	require.NoError(t, err)

	report, found, err := store.LatestReport(ctx, "dev")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "march", report.Summary)
	client.AssertExpectations(t)
}

func TestNewS3Store_Validation(t *testing.T) {
	_, err := NewS3Store(nil, "bucket", nil, nil)
	assert.Error(t, err)

	_, err = NewS3Store(new(mockS3Client), "", nil, nil)
	assert.Error(t, err)
}
