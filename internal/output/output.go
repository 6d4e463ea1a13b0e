// Package output renders snapshots, drift reports and multi-environment
// results for the terminal or for machines.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/pkg/types"
	"golang.org/x/term"
)

// Detection is what the detect command shows for one environment
type Detection struct {
	Environment    string             `json:"environment" yaml:"environment"`
	Report         *types.DriftReport `json:"report" yaml:"report"`
	ReportLocation string             `json:"report_location" yaml:"report_location"`
	AlertSent      bool               `json:"alert_sent" yaml:"alert_sent"`
	AlertTarget    string             `json:"alert_target,omitempty" yaml:"alert_target,omitempty"`
}

// Saved describes a stored scan or baseline
type Saved struct {
	Kind     string          `json:"kind" yaml:"kind"`
	Location string          `json:"location" yaml:"location"`
	Snapshot *types.Snapshot `json:"snapshot" yaml:"snapshot"`
}

// Formatter defines the interface for output formatting
type Formatter interface {
	FormatSaved(saved Saved, w io.Writer) error
	FormatDetection(detection Detection, w io.Writer) error
	FormatResults(results []detector.EnvironmentResult, w io.Writer) error
	FormatReport(report *types.DriftReport, w io.Writer) error
}

// Formats lists the accepted --output values
var Formats = []string{"table", "json", "yaml", "markdown"}

// NewFormatter creates a formatter based on format type
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "table", "text":
		return &TableFormatter{Width: terminalWidth()}, nil
	case "json":
		return &JSONFormatter{Pretty: true}, nil
	case "yaml", "yml":
		return &YAMLFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (expected one of %s)", format, strings.Join(Formats, ", "))
	}
}

// ConfigureColor disables colors when requested or when stdout is not a
// terminal
func ConfigureColor(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		if width > 80 {
			return 80
		}
		return width
	}
	return 50
}

// RiskEmoji is the marker shown next to a risk level
func RiskEmoji(level types.RiskLevel) string {
	switch level {
	case types.RiskCritical:
		return "🚨"
	case types.RiskHigh:
		return "⚠️"
	case types.RiskMedium:
		return "⚠"
	case types.RiskLow:
		return "ℹ️"
	case types.RiskInfo:
		return "✓"
	default:
		return "⚠"
	}
}

func riskColor(level types.RiskLevel) *color.Color {
	switch level {
	case types.RiskCritical:
		return color.New(color.FgRed, color.Bold)
	case types.RiskHigh:
		return color.New(color.FgRed)
	case types.RiskMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
