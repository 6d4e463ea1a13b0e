package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// scanInstances lists running and stopped instances tagged for env
func (s *Scanner) scanInstances(ctx context.Context, env string) ([]types.Record, error) {
	var records []types.Record
	var nextToken *string

	for {
		result, err := s.clients.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{
				{Name: aws.String(tagFilterName(EnvironmentTag)), Values: []string{env}},
				{Name: aws.String("instance-state-name"), Values: []string{"running", "stopped"}},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}

		for _, reservation := range result.Reservations {
			for _, instance := range reservation.Instances {
				state := ""
				if instance.State != nil {
					state = string(instance.State.Name)
				}
				records = append(records, types.Record{
					types.FieldInstanceID:   aws.ToString(instance.InstanceId),
					types.FieldInstanceType: string(instance.InstanceType),
					types.FieldState:        state,
				})
			}
		}

		nextToken = result.NextToken
		if nextToken == nil {
			break
		}
	}

	return records, nil
}
