package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// scanVPCs lists tagged VPCs with their subnets and NAT gateway presence
func (s *Scanner) scanVPCs(ctx context.Context, env string) ([]types.Record, error) {
	var records []types.Record
	var nextToken *string

	for {
		result, err := s.clients.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
			Filters:   []ec2types.Filter{{Name: aws.String(tagFilterName(EnvironmentTag)), Values: []string{env}}},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe VPCs: %w", err)
		}

		for _, vpc := range result.Vpcs {
			vpcID := aws.ToString(vpc.VpcId)

			subnets, err := s.vpcSubnets(ctx, vpcID)
			if err != nil {
				return nil, err
			}

			hasNAT, err := s.vpcHasNATGateway(ctx, vpcID)
			if err != nil {
				return nil, err
			}

			records = append(records, types.Record{
				types.FieldVPCID:         vpcID,
				types.FieldCIDRBlock:     aws.ToString(vpc.CidrBlock),
				types.FieldState:         string(vpc.State),
				types.FieldTags:          ec2Tags(vpc.Tags),
				types.FieldSubnets:       subnets,
				types.FieldHasNATGateway: hasNAT,
			})
		}

		nextToken = result.NextToken
		if nextToken == nil {
			break
		}
	}

	return records, nil
}

func (s *Scanner) vpcSubnets(ctx context.Context, vpcID string) ([]any, error) {
	subnets := []any{}
	var nextToken *string

	for {
		result, err := s.clients.EC2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
			Filters:   []ec2types.Filter{{Name: aws.String("vpc-id"), Values: []string{vpcID}}},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe subnets of %s: %w", vpcID, err)
		}

		for _, subnet := range result.Subnets {
			subnets = append(subnets, map[string]any{
				types.FieldSubnetID:         aws.ToString(subnet.SubnetId),
				types.FieldCIDRBlock:        aws.ToString(subnet.CidrBlock),
				types.FieldAvailabilityZone: aws.ToString(subnet.AvailabilityZone),
			})
		}

		nextToken = result.NextToken
		if nextToken == nil {
			break
		}
	}

	return subnets, nil
}

// vpcHasNATGateway reports whether the VPC has a NAT gateway that is not
// being torn down
func (s *Scanner) vpcHasNATGateway(ctx context.Context, vpcID string) (bool, error) {
	result, err := s.clients.EC2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			{Name: aws.String("state"), Values: []string{"pending", "available"}},
		},
		MaxResults: aws.Int32(5),
	})
	if err != nil {
		return false, fmt.Errorf("failed to describe NAT gateways of %s: %w", vpcID, err)
	}
	return len(result.NatGateways) > 0, nil
}

func ec2Tags(tags []ec2types.Tag) map[string]any {
	out := make(map[string]any, len(tags))
	for _, tag := range tags {
		out[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return out
}
