package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// scanFunctions lists Lambda functions whose Environment tag equals env
func (s *Scanner) scanFunctions(ctx context.Context, env string) ([]types.Record, error) {
	var records []types.Record
	var marker *string

	for {
		result, err := s.clients.Lambda.ListFunctions(ctx, &lambda.ListFunctionsInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("failed to list Lambda functions: %w", err)
		}

		for _, function := range result.Functions {
			tags, err := s.clients.Lambda.ListTags(ctx, &lambda.ListTagsInput{Resource: function.FunctionArn})
			if err != nil {
				return nil, fmt.Errorf("failed to list tags for %s: %w", aws.ToString(function.FunctionName), err)
			}
			if tags.Tags[EnvironmentTag] != env {
				continue
			}

			records = append(records, types.Record{
				types.FieldFunctionName: aws.ToString(function.FunctionName),
				types.FieldRuntime:      string(function.Runtime),
				types.FieldMemorySize:   int(aws.ToInt32(function.MemorySize)),
			})
		}

		marker = result.NextMarker
		if marker == nil {
			break
		}
	}

	return records, nil
}
