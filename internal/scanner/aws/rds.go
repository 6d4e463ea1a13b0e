package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// scanDBInstances lists DB instances whose Environment tag equals env.
// DescribeDBInstances cannot filter on tags, so tags are fetched per instance.
func (s *Scanner) scanDBInstances(ctx context.Context, env string) ([]types.Record, error) {
	var records []types.Record
	var marker *string

	for {
		result, err := s.clients.RDS.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}

		for _, instance := range result.DBInstances {
			tags, err := s.clients.RDS.ListTagsForResource(ctx, &rds.ListTagsForResourceInput{
				ResourceName: instance.DBInstanceArn,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to list tags for %s: %w", aws.ToString(instance.DBInstanceIdentifier), err)
			}

			matched := false
			for _, tag := range tags.TagList {
				if aws.ToString(tag.Key) == EnvironmentTag && aws.ToString(tag.Value) == env {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}

			records = append(records, types.Record{
				types.FieldDBIdentifier:    aws.ToString(instance.DBInstanceIdentifier),
				types.FieldDBInstanceClass: aws.ToString(instance.DBInstanceClass),
				types.FieldEngine:          aws.ToString(instance.Engine),
			})
		}

		marker = result.Marker
		if marker == nil {
			break
		}
	}

	return records, nil
}
