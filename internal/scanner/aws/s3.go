package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// scanBuckets lists buckets whose Environment tag equals env. Buckets without
// a tag set, or whose tags cannot be read, are skipped.
func (s *Scanner) scanBuckets(ctx context.Context, env string) ([]types.Record, error) {
	var records []types.Record
	var token *string

	for {
		result, err := s.clients.S3.ListBuckets(ctx, &s3.ListBucketsInput{ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("failed to list buckets: %w", err)
		}

		for _, bucket := range result.Buckets {
			name := aws.ToString(bucket.Name)

			tagging, err := s.clients.S3.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: bucket.Name})
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.WithField("bucket", name).Debug(fmt.Sprintf("Skipping bucket: %v", err))
				continue
			}

			for _, tag := range tagging.TagSet {
				if aws.ToString(tag.Key) == EnvironmentTag && aws.ToString(tag.Value) == env {
					records = append(records, types.Record{types.FieldBucketName: name})
					break
				}
			}
		}

		token = result.ContinuationToken
		if token == nil {
			break
		}
	}

	return records, nil
}
