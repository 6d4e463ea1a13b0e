// Package awsclient loads the shared AWS SDK configuration used by the
// scanner, the S3 store and the SNS notifier.
package awsclient

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSClientInterface defines the STS client methods we use
type STSClientInterface interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ClientConfig holds configuration for AWS client creation
type ClientConfig struct {
	Region     string
	Profile    string
	MaxRetries int
}

// Identity is the caller the credentials resolve to
type Identity struct {
	Account string
	ARN     string
}

// LoadConfig resolves credentials through the default chain and returns an
// aws.Config with retries applied.
func LoadConfig(ctx context.Context, clientConfig ClientConfig) (aws.Config, error) {
	if clientConfig.MaxRetries == 0 {
		clientConfig.MaxRetries = 3
	}

	var opts []func(*config.LoadOptions) error

	if clientConfig.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(clientConfig.Profile))
	}

	if clientConfig.Region != "" {
		opts = append(opts, config.WithRegion(clientConfig.Region))
	}

	opts = append(opts, config.WithRetryer(func() aws.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), clientConfig.MaxRetries)
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("no AWS region configured")
	}

	return cfg, nil
}

// ValidateCredentials checks that credentials can be retrieved and have not
// expired, without calling any AWS API.
func ValidateCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return fmt.Errorf("no AWS credentials configured")
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return enhanceCredentialError(err)
	}

	if creds.AccessKeyID == "" {
		return fmt.Errorf("AWS Access Key ID is empty")
	}

	if creds.SecretAccessKey == "" {
		return fmt.Errorf("AWS Secret Access Key is empty")
	}

	if creds.CanExpire && !creds.Expires.IsZero() && time.Now().After(creds.Expires) {
		return fmt.Errorf("AWS credentials have expired (expired at: %v)", creds.Expires)
	}

	return nil
}

// CallerIdentity asks STS who the credentials belong to
func CallerIdentity(ctx context.Context, client STSClientInterface) (*Identity, error) {
	result, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to validate AWS credentials: %w", err)
	}

	if result.Account == nil || result.Arn == nil {
		return nil, fmt.Errorf("received invalid identity information from AWS")
	}

	return &Identity{Account: aws.ToString(result.Account), ARN: aws.ToString(result.Arn)}, nil
}

// NewSTSClient builds an STS client from cfg
func NewSTSClient(cfg aws.Config) *sts.Client {
	return sts.NewFromConfig(cfg)
}

func enhanceCredentialError(err error) error {
	msg := err.Error()

	if strings.Contains(msg, "no EC2 IMDS role found") {
		return fmt.Errorf("no AWS credentials found: %w\n\nSuggestions:\n"+
			"1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables\n"+
			"2. Run 'aws configure' to set up credentials\n"+
			"3. Use AWS_PROFILE environment variable\n"+
			"4. If running on EC2, ensure instance has IAM role attached", err)
	}

	if strings.Contains(msg, "failed to refresh cached credentials") {
		return fmt.Errorf("failed to refresh AWS credentials: %w\n\nSuggestions:\n"+
			"1. Check if credentials have expired\n"+
			"2. Verify network connectivity\n"+
			"3. Re-run 'aws configure' or refresh tokens", err)
	}

	if os.Getenv("AWS_ACCESS_KEY_ID") == "" && os.Getenv("AWS_PROFILE") == "" {
		return fmt.Errorf("no AWS credentials configured: %w", err)
	}

	return fmt.Errorf("failed to retrieve AWS credentials: %w", err)
}
