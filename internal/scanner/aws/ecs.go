package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// describeServicesBatch is the DescribeServices limit per call
const describeServicesBatch = 10

// scanServices lists ECS services in every cluster whose Environment tag
// equals env
func (s *Scanner) scanServices(ctx context.Context, env string) ([]types.Record, error) {
	clusters, err := s.listClusters(ctx)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	for _, cluster := range clusters {
		serviceArns, err := s.listServices(ctx, cluster)
		if err != nil {
			return nil, err
		}

		for start := 0; start < len(serviceArns); start += describeServicesBatch {
			end := start + describeServicesBatch
			if end > len(serviceArns) {
				end = len(serviceArns)
			}

			result, err := s.clients.ECS.DescribeServices(ctx, &ecs.DescribeServicesInput{
				Cluster:  aws.String(cluster),
				Services: serviceArns[start:end],
				Include:  []ecstypes.ServiceField{ecstypes.ServiceFieldTags},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to describe services in %s: %w", cluster, err)
			}

			for _, service := range result.Services {
				if !hasECSTag(service.Tags, EnvironmentTag, env) {
					continue
				}
				records = append(records, types.Record{
					types.FieldServiceName:  aws.ToString(service.ServiceName),
					types.FieldDesiredCount: int(service.DesiredCount),
				})
			}
		}
	}

	return records, nil
}

func (s *Scanner) listClusters(ctx context.Context) ([]string, error) {
	var clusters []string
	var nextToken *string

	for {
		result, err := s.clients.ECS.ListClusters(ctx, &ecs.ListClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("failed to list clusters: %w", err)
		}
		clusters = append(clusters, result.ClusterArns...)

		nextToken = result.NextToken
		if nextToken == nil {
			break
		}
	}

	return clusters, nil
}

func (s *Scanner) listServices(ctx context.Context, cluster string) ([]string, error) {
	var services []string
	var nextToken *string

	for {
		result, err := s.clients.ECS.ListServices(ctx, &ecs.ListServicesInput{
			Cluster:   aws.String(cluster),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list services in %s: %w", cluster, err)
		}
		services = append(services, result.ServiceArns...)

		nextToken = result.NextToken
		if nextToken == nil {
			break
		}
	}

	return services, nil
}

func hasECSTag(tags []ecstypes.Tag, key, value string) bool {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == key && aws.ToString(tag.Value) == value {
			return true
		}
	}
	return false
}
