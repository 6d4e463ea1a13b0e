package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "Authentication"
	ErrorTypeConfiguration  ErrorType = "Configuration"
	ErrorTypeProvider       ErrorType = "Provider"
	ErrorTypeStorage        ErrorType = "Storage"
	ErrorTypeNetwork        ErrorType = "Network"
	ErrorTypePermission     ErrorType = "Permission"
	ErrorTypeValidation     ErrorType = "Validation"
	ErrorTypeNotFound       ErrorType = "NotFound"
)

// Provider represents the backend an error originated from
type Provider string

const (
	ProviderAWS     Provider = "AWS"
	ProviderLocal   Provider = "Local"
	ProviderSlack   Provider = "Slack"
	ProviderUnknown Provider = "Unknown"
)

// DriftError represents a user-facing error with actionable guidance
type DriftError struct {
	Type        ErrorType
	Provider    Provider
	Message     string
	Cause       string
	Solutions   []string
	Verify      string
	Help        string
	Environment string
	Err         error
}

// Error implements the error interface
func (e *DriftError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\nError: %s\n", e.Message))

	if e.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", e.Cause))
	}

	if e.Environment != "" {
		sb.WriteString(fmt.Sprintf("Environment: %s\n", e.Environment))
	}

	if len(e.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for _, solution := range e.Solutions {
			sb.WriteString(fmt.Sprintf("  %s\n", solution))
		}
	}

	if e.Verify != "" {
		sb.WriteString(fmt.Sprintf("\nVerify: %s\n", e.Verify))
	}

	if e.Help != "" {
		sb.WriteString(fmt.Sprintf("Help: %s\n", e.Help))
	}

	return sb.String()
}

// Unwrap returns the wrapped error
func (e *DriftError) Unwrap() error {
	return e.Err
}

// Format implements fmt.Formatter for custom formatting
func (e *DriftError) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprintf(f, "%s", e.Error())
	case 'v':
		if f.Flag('+') {
			fmt.Fprintf(f, "[%s/%s] %s", e.Type, e.Provider, e.Error())
		} else {
			fmt.Fprintf(f, "%s", e.Error())
		}
	}
}

// New creates a new DriftError
func New(errType ErrorType, provider Provider, message string) *DriftError {
	return &DriftError{
		Type:        errType,
		Provider:    provider,
		Message:     message,
		Environment: detectEnvironment(),
	}
}

// WithCause adds cause information
func (e *DriftError) WithCause(cause string) *DriftError {
	e.Cause = cause
	return e
}

// WithSolutions adds solution steps
func (e *DriftError) WithSolutions(solutions ...string) *DriftError {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// WithVerify adds verification command
func (e *DriftError) WithVerify(verify string) *DriftError {
	e.Verify = verify
	return e
}

// WithHelp adds help command
func (e *DriftError) WithHelp(help string) *DriftError {
	e.Help = help
	return e
}

// Wrap attaches the underlying error so errors.Is and errors.As see through
func (e *DriftError) Wrap(err error) *DriftError {
	e.Err = err
	return e
}

// detectEnvironment names where the binary runs, to tailor solutions
func detectEnvironment() string {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return "AWS Lambda detected"
	}

	ciVars := []string{"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_HOME"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return "CI/CD detected"
		}
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "Container environment detected"
	}

	return "Development workstation detected"
}

// IsUserError checks if error requires user action
func IsUserError(err error) bool {
	var driftErr *DriftError
	return stderrors.As(err, &driftErr)
}

// GetExitCode returns appropriate exit code for error type
func GetExitCode(err error) int {
	var driftErr *DriftError
	if !stderrors.As(err, &driftErr) {
		return 1
	}

	switch driftErr.Type {
	case ErrorTypeAuthentication:
		return 77 // EX_NOPERM
	case ErrorTypeConfiguration:
		return 78 // EX_CONFIG
	case ErrorTypePermission:
		return 77 // EX_NOPERM
	case ErrorTypeStorage:
		return 74 // EX_IOERR
	case ErrorTypeNetwork:
		return 69 // EX_UNAVAILABLE
	default:
		return 1
	}
}
