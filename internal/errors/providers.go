package errors

import (
	"fmt"
	"strings"
)

// AWSCredentialsError creates an AWS credentials error with guidance
func AWSCredentialsError(originalErr error) *DriftError {
	err := New(ErrorTypeAuthentication, ProviderAWS, "AWS credentials not found")
	err.WithCause("No valid credential source detected")
	err.Wrap(originalErr)

	if originalErr != nil && strings.Contains(originalErr.Error(), "ExpiredToken") {
		err.Message = "AWS credentials expired"
		err.WithCause("Security token has expired")
		err.WithSolutions(
			"Refresh AWS credentials",
			"aws sso login (if using SSO)",
			"Get new temporary credentials",
		)
	} else if err.Environment == "CI/CD detected" {
		err.WithSolutions(
			`Configure an AWS IAM role for CI/CD`,
			`export AWS_ACCESS_KEY_ID=your-key AWS_SECRET_ACCESS_KEY=your-secret`,
		)
	} else {
		err.WithSolutions(
			`aws configure`,
			`export AWS_PROFILE=your-profile`,
			`aws sso login (if using AWS SSO)`,
		)
	}

	err.WithVerify("aws sts get-caller-identity")
	err.WithHelp("driftwatch --help")

	return err
}

// AWSRegionError creates an AWS region configuration error
func AWSRegionError() *DriftError {
	err := New(ErrorTypeConfiguration, ProviderAWS, "AWS region not specified")

	err.WithSolutions(
		`export AWS_REGION=us-east-1`,
		`Add --region flag to your command`,
		`Set aws.region in config.yaml`,
	)

	err.WithVerify("aws configure get region")

	return err
}

// BucketNotConfiguredError is returned when the S3 backend has no bucket
func BucketNotConfiguredError() *DriftError {
	err := New(ErrorTypeConfiguration, ProviderAWS, "Drift bucket not configured")
	err.WithCause("storage.backend is s3 but no bucket name was given")

	err.WithSolutions(
		`Add --bucket my-drift-bucket to your command`,
		`export DRIFT_BUCKET=my-drift-bucket`,
		`Set storage.backend: local to keep snapshots on disk`,
	)

	return err
}

// MissingBaselineError reports that detect ran before a baseline existed
func MissingBaselineError(env string, cause error) *DriftError {
	err := New(ErrorTypeNotFound, ProviderUnknown, fmt.Sprintf("No baseline found for %s", env))
	err.Wrap(cause)
	err.WithSolutions(fmt.Sprintf("driftwatch baseline %s", env))
	err.WithHelp("driftwatch baseline --help")
	return err
}

// StorageError wraps a snapshot store failure
func StorageError(provider Provider, operation string, cause error) *DriftError {
	err := New(ErrorTypeStorage, provider, fmt.Sprintf("Failed to %s", operation))
	err.Wrap(cause)
	if cause != nil {
		err.WithCause(cause.Error())
	}

	switch provider {
	case ProviderAWS:
		err.WithSolutions(
			"Check the bucket exists and is in the configured region",
			"Verify s3:GetObject and s3:PutObject permissions",
		)
		err.WithVerify("aws s3 ls s3://<bucket>/baselines/")
	default:
		err.WithSolutions("Check storage.base_path exists and is writable")
	}

	return err
}

// PermissionError creates a permission error
func PermissionError(provider Provider, resource string) *DriftError {
	err := New(ErrorTypePermission, provider, fmt.Sprintf("Permission denied accessing %s", resource))
	err.WithCause("Insufficient permissions for the requested operation")

	if provider == ProviderAWS {
		err.WithSolutions(
			"Attach ReadOnlyAccess for scanning",
			"Grant s3:GetObject, s3:PutObject and sns:Publish for detection",
		)
		err.WithVerify("aws iam get-user")
	}

	return err
}

// NetworkError creates a network connectivity error
func NetworkError(provider Provider, endpoint string) *DriftError {
	err := New(ErrorTypeNetwork, provider, fmt.Sprintf("Cannot reach %s", endpoint))
	err.WithSolutions(
		"Check your internet connection",
		"Verify proxy settings (HTTP_PROXY, HTTPS_PROXY)",
	)
	return err
}
