package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// DisplayError writes err to stderr, with guidance when it is a DriftError
func DisplayError(err error) {
	Fprint(os.Stderr, err)
}

// Fprint writes a colored rendering of err to w
func Fprint(w io.Writer, err error) {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("DRIFTWATCH_NO_COLOR") != "" {
		color.NoColor = true
	}

	var driftErr *DriftError
	if !stderrors.As(err, &driftErr) {
		fmt.Fprintln(w, color.RedString("Error: %v", err))
		return
	}

	colorFunc := getErrorStyle(driftErr.Type)

	fmt.Fprintf(w, "\n%s\n", colorFunc(driftErr.Message))

	if driftErr.Cause != "" {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Cause:"), color.HiBlackString(driftErr.Cause))
	}

	if driftErr.Environment != "" {
		fmt.Fprintf(w, "   %s %s\n", color.CyanString("Environment:"), color.HiBlackString(driftErr.Environment))
	}

	if len(driftErr.Solutions) > 0 {
		fmt.Fprintf(w, "\n   %s\n", color.GreenString("Solutions:"))
		for i, solution := range driftErr.Solutions {
			fmt.Fprintf(w, "   %s %s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), solution)
		}
	}

	if driftErr.Verify != "" {
		fmt.Fprintf(w, "\n   %s %s\n", color.BlueString("Verify:"), color.HiWhiteString(driftErr.Verify))
	}

	if driftErr.Help != "" {
		fmt.Fprintf(w, "   %s %s\n", color.MagentaString("Help:"), color.HiWhiteString(driftErr.Help))
	}

	fmt.Fprintln(w)
}

func getErrorStyle(errType ErrorType) func(format string, a ...interface{}) string {
	switch errType {
	case ErrorTypeConfiguration, ErrorTypeValidation, ErrorTypeNotFound:
		return color.YellowString
	case ErrorTypeProvider:
		return color.CyanString
	case ErrorTypeStorage:
		return color.MagentaString
	default:
		return color.RedString
	}
}

// FormatErrorWithContext renders an error as plain text for logs and CI
func FormatErrorWithContext(err error, context map[string]string) string {
	var sb strings.Builder

	var driftErr *DriftError
	if !stderrors.As(err, &driftErr) {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Error: %s\n", driftErr.Message))
	sb.WriteString(fmt.Sprintf("Type: %s/%s\n", driftErr.Type, driftErr.Provider))

	if driftErr.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", driftErr.Cause))
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nContext:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, context[k]))
		}
	}

	if len(driftErr.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for i, solution := range driftErr.Solutions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
	}

	return sb.String()
}
