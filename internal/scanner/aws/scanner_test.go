package aws

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/driftwatch/pkg/types"
)

type mocks struct {
	ec2    *MockEC2Client
	rds    *MockRDSClient
	s3     *MockS3Client
	lambda *MockLambdaClient
	ecs    *MockECSClient
}

func newMocks() *mocks {
	return &mocks{
		ec2:    new(MockEC2Client),
		rds:    new(MockRDSClient),
		s3:     new(MockS3Client),
		lambda: new(MockLambdaClient),
		ecs:    new(MockECSClient),
	}
}

func (m *mocks) scanner() *Scanner {
	clients := Clients{EC2: m.ec2, RDS: m.rds, S3: m.s3, Lambda: m.lambda, ECS: m.ecs}
	return NewScanner(clients, "us-east-1", WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	}))
}

// emptyEverywhere makes every category return nothing unless overridden
func (m *mocks) emptyEverywhere() {
	m.ec2.On("DescribeVpcs", mock.Anything, mock.Anything).Return(&ec2.DescribeVpcsOutput{}, nil).Maybe()
	m.ec2.On("DescribeInstances", mock.Anything, mock.Anything).Return(&ec2.DescribeInstancesOutput{}, nil).Maybe()
	m.rds.On("DescribeDBInstances", mock.Anything, mock.Anything).Return(&rds.DescribeDBInstancesOutput{}, nil).Maybe()
	m.s3.On("ListBuckets", mock.Anything, mock.Anything).Return(&s3.ListBucketsOutput{}, nil).Maybe()
	m.lambda.On("ListFunctions", mock.Anything, mock.Anything).Return(&lambda.ListFunctionsOutput{}, nil).Maybe()
	m.ecs.On("ListClusters", mock.Anything, mock.Anything).Return(&ecs.ListClustersOutput{}, nil).Maybe()
}

func TestScan_EmptyAccount(t *testing.T) {
	m := newMocks()
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "dev")
	require.NoError(t, err)

	assert.Equal(t, "dev", snapshot.Environment)
	assert.Equal(t, "2024-05-01T10:00:00Z", snapshot.Timestamp)
	assert.Equal(t, "us-east-1", snapshot.Region)
	for _, cat := range types.Categories {
		records, ok := snapshot.Resources[cat]
		assert.True(t, ok, "category %s present", cat)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	}
}

func TestScan_RequiresEnvironment(t *testing.T) {
	_, err := newMocks().scanner().Scan(context.Background(), " ")
	assert.Error(t, err)
}

func TestScan_VPC(t *testing.T) {
	m := newMocks()
	m.ec2.On("DescribeVpcs", mock.Anything, mock.MatchedBy(func(in *ec2.DescribeVpcsInput) bool {
		return aws.ToString(in.Filters[0].Name) == "tag:Environment" && in.Filters[0].Values[0] == "prod"
	})).Return(&ec2.DescribeVpcsOutput{
		Vpcs: []ec2types.Vpc{{
			VpcId:     aws.String("vpc-1"),
			CidrBlock: aws.String("10.0.0.0/16"),
			State:     ec2types.VpcStateAvailable,
			Tags:      []ec2types.Tag{{Key: aws.String("Environment"), Value: aws.String("prod")}},
		}},
	}, nil)
	m.ec2.On("DescribeSubnets", mock.Anything, mock.Anything).Return(&ec2.DescribeSubnetsOutput{
		Subnets: []ec2types.Subnet{{
			SubnetId:         aws.String("subnet-a"),
			CidrBlock:        aws.String("10.0.1.0/24"),
			AvailabilityZone: aws.String("us-east-1a"),
		}},
	}, nil)
	m.ec2.On("DescribeNatGateways", mock.Anything, mock.Anything).Return(&ec2.DescribeNatGatewaysOutput{
		NatGateways: []ec2types.NatGateway{{NatGatewayId: aws.String("nat-1")}},
	}, nil)
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "prod")
	require.NoError(t, err)

	vpcs := snapshot.Resources.Records(types.CategoryVPC)
	require.Len(t, vpcs, 1)
	assert.Equal(t, types.Record{
		"vpc_id":          "vpc-1",
		"cidr_block":      "10.0.0.0/16",
		"state":           "available",
		"tags":            map[string]any{"Environment": "prod"},
		"has_nat_gateway": true,
		"subnets": []any{map[string]any{
			"subnet_id":         "subnet-a",
			"cidr_block":        "10.0.1.0/24",
			"availability_zone": "us-east-1a",
		}},
	}, vpcs[0])
}

func TestScan_EC2Pagination(t *testing.T) {
	m := newMocks()
	m.ec2.On("DescribeInstances", mock.Anything, mock.MatchedBy(func(in *ec2.DescribeInstancesInput) bool {
		return in.NextToken == nil
	})).Return(&ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{
			InstanceId:   aws.String("i-1"),
			InstanceType: ec2types.InstanceTypeT3Micro,
			State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		}}}},
		NextToken: aws.String("next"),
	}, nil).Once()
	m.ec2.On("DescribeInstances", mock.Anything, mock.MatchedBy(func(in *ec2.DescribeInstancesInput) bool {
		return aws.ToString(in.NextToken) == "next"
	})).Return(&ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{
			InstanceId:   aws.String("i-2"),
			InstanceType: ec2types.InstanceTypeT3Large,
			State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped},
		}}}},
	}, nil).Once()
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "dev")
	require.NoError(t, err)

	instances := snapshot.Resources.Records(types.CategoryEC2)
	require.Len(t, instances, 2)
	assert.Equal(t, types.Record{"instance_id": "i-1", "instance_type": "t3.micro", "state": "running"}, instances[0])
	assert.Equal(t, "stopped", instances[1].String("state"))
}

func TestScan_RDSFailureIsolated(t *testing.T) {
	m := newMocks()
	m.rds.On("DescribeDBInstances", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied"))
	m.lambda.On("ListFunctions", mock.Anything, mock.Anything).Return(&lambda.ListFunctionsOutput{
		Functions: []lambdatypes.FunctionConfiguration{
			{FunctionName: aws.String("api"), FunctionArn: aws.String("arn:api"), Runtime: lambdatypes.RuntimePython312, MemorySize: aws.Int32(512)},
			{FunctionName: aws.String("other"), FunctionArn: aws.String("arn:other"), Runtime: lambdatypes.RuntimeNodejs20x, MemorySize: aws.Int32(128)},
		},
	}, nil)
	m.lambda.On("ListTags", mock.Anything, mock.MatchedBy(func(in *lambda.ListTagsInput) bool {
		return aws.ToString(in.Resource) == "arn:api"
	})).Return(&lambda.ListTagsOutput{Tags: map[string]string{"Environment": "staging"}}, nil)
	m.lambda.On("ListTags", mock.Anything, mock.MatchedBy(func(in *lambda.ListTagsInput) bool {
		return aws.ToString(in.Resource) == "arn:other"
	})).Return(&lambda.ListTagsOutput{Tags: map[string]string{"Environment": "prod"}}, nil)
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "staging")
	require.NoError(t, err)

	assert.Empty(t, snapshot.Resources.Records(types.CategoryRDS))
	functions := snapshot.Resources.Records(types.CategoryLambda)
	require.Len(t, functions, 1)
	assert.Equal(t, types.Record{"function_name": "api", "runtime": "python3.12", "memory_size": 512}, functions[0])
}

func TestScan_RDSTagFilter(t *testing.T) {
	m := newMocks()
	m.rds.On("DescribeDBInstances", mock.Anything, mock.Anything).Return(&rds.DescribeDBInstancesOutput{
		DBInstances: []rdstypes.DBInstance{
			{DBInstanceArn: aws.String("arn:db1"), DBInstanceIdentifier: aws.String("db1"), DBInstanceClass: aws.String("db.t3.micro"), Engine: aws.String("postgres")},
			{DBInstanceArn: aws.String("arn:db2"), DBInstanceIdentifier: aws.String("db2"), DBInstanceClass: aws.String("db.t3.large"), Engine: aws.String("mysql")},
		},
	}, nil)
	m.rds.On("ListTagsForResource", mock.Anything, mock.MatchedBy(func(in *rds.ListTagsForResourceInput) bool {
		return aws.ToString(in.ResourceName) == "arn:db1"
	})).Return(&rds.ListTagsForResourceOutput{TagList: []rdstypes.Tag{{Key: aws.String("Environment"), Value: aws.String("prod")}}}, nil)
	m.rds.On("ListTagsForResource", mock.Anything, mock.Anything).Return(&rds.ListTagsForResourceOutput{}, nil)
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "prod")
	require.NoError(t, err)

	assert.Equal(t, []types.Record{{
		"db_instance_identifier": "db1",
		"db_instance_class":      "db.t3.micro",
		"engine":                 "postgres",
	}}, snapshot.Resources.Records(types.CategoryRDS))
}

func TestScan_S3SkipsUntaggedBuckets(t *testing.T) {
	m := newMocks()
	m.s3.On("ListBuckets", mock.Anything, mock.Anything).Return(&s3.ListBucketsOutput{
		Buckets: []s3types.Bucket{{Name: aws.String("logs")}, {Name: aws.String("untagged")}},
	}, nil)
	m.s3.On("GetBucketTagging", mock.Anything, mock.MatchedBy(func(in *s3.GetBucketTaggingInput) bool {
		return aws.ToString(in.Bucket) == "logs"
	})).Return(&s3.GetBucketTaggingOutput{TagSet: []s3types.Tag{{Key: aws.String("Environment"), Value: aws.String("dev")}}}, nil)
	m.s3.On("GetBucketTagging", mock.Anything, mock.Anything).Return(nil, errors.New("NoSuchTagSet"))
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, []types.Record{{"bucket_name": "logs"}}, snapshot.Resources.Records(types.CategoryS3))
}

func TestScan_ECSBatchesDescribeServices(t *testing.T) {
	m := newMocks()
	var arns []string
	for i := 0; i < 12; i++ {
		arns = append(arns, fmt.Sprintf("arn:svc-%02d", i))
	}
	m.ecs.On("ListClusters", mock.Anything, mock.Anything).Return(&ecs.ListClustersOutput{ClusterArns: []string{"arn:cluster"}}, nil)
	m.ecs.On("ListServices", mock.Anything, mock.Anything).Return(&ecs.ListServicesOutput{ServiceArns: arns}, nil)
	m.ecs.On("DescribeServices", mock.Anything, mock.MatchedBy(func(in *ecs.DescribeServicesInput) bool {
		return len(in.Services) == 10
	})).Return(&ecs.DescribeServicesOutput{Services: []ecstypes.Service{{
		ServiceName:  aws.String("web"),
		DesiredCount: 3,
		Tags:         []ecstypes.Tag{{Key: aws.String("Environment"), Value: aws.String("prod")}},
	}}}, nil).Once()
	m.ecs.On("DescribeServices", mock.Anything, mock.MatchedBy(func(in *ecs.DescribeServicesInput) bool {
		return len(in.Services) == 2
	})).Return(&ecs.DescribeServicesOutput{Services: []ecstypes.Service{{
		ServiceName:  aws.String("worker"),
		DesiredCount: 1,
		Tags:         []ecstypes.Tag{{Key: aws.String("Environment"), Value: aws.String("dev")}},
	}}}, nil).Once()
	m.emptyEverywhere()

	snapshot, err := m.scanner().Scan(context.Background(), "prod")
	require.NoError(t, err)

	assert.Equal(t, []types.Record{{"service_name": "web", "desired_count": 3}}, snapshot.Resources.Records(types.CategoryECS))
	m.ecs.AssertNumberOfCalls(t, "DescribeServices", 2)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newMocks()
	m.ec2.On("DescribeVpcs", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	_, err := m.scanner().Scan(ctx, "dev")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_SingleWorker(t *testing.T) {
	m := newMocks()
	m.emptyEverywhere()

	clients := Clients{EC2: m.ec2, RDS: m.rds, S3: m.s3, Lambda: m.lambda, ECS: m.ecs}
	snapshot, err := NewScanner(clients, "eu-west-1", WithWorkers(1), WithWorkers(0)).Scan(context.Background(), "qa")
	require.NoError(t, err)
	assert.Len(t, snapshot.Resources, len(types.Categories))
}
