package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// snsSubjectLimit is the maximum subject length SNS accepts
const snsSubjectLimit = 100

// SNSClientInterface defines the SNS client methods we use
type SNSClientInterface interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSTransport publishes alerts to an SNS topic
type SNSTransport struct {
	client SNSClientInterface
}

// NewSNSTransport wraps an SNS client
func NewSNSTransport(client SNSClientInterface) *SNSTransport {
	return &SNSTransport{client: client}
}

// Name identifies the transport in logs
func (t *SNSTransport) Name() string {
	return "sns"
}

// Send publishes msg to the topic ARN in destination
func (t *SNSTransport) Send(ctx context.Context, destination string, msg Message) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("sns topic ARN is required")
	}

	result, err := t.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(destination),
		Subject:  aws.String(truncateRunes(msg.Subject, snsSubjectLimit)),
		Message:  aws.String(msg.Body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", destination, err)
	}

	return aws.ToString(result.MessageId), nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
