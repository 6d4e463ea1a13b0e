package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/internal/notifier"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// TableFormatter writes human-oriented text
type TableFormatter struct {
	Width int
}

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	headerColor  = color.New(color.Bold)
)

// FormatSaved prints "✓ Scan completed: <location>" with per-category counts
func (f *TableFormatter) FormatSaved(saved Saved, w io.Writer) error {
	label := "Scan completed"
	if saved.Kind == "baseline" {
		label = "Baseline created"
	}
	successColor.Fprintf(w, "✓ %s: %s\n", label, saved.Location)

	if saved.Snapshot != nil {
		for _, cat := range saved.Snapshot.Resources.OrderedCategories() {
			fmt.Fprintf(w, "  %-8s %d\n", cat, len(saved.Snapshot.Resources.Records(cat)))
		}
	}
	return nil
}

// FormatDetection prints the outcome of one detect run
func (f *TableFormatter) FormatDetection(d Detection, w io.Writer) error {
	if d.Report == nil {
		return fmt.Errorf("detection for %s has no report", d.Environment)
	}

	report := d.Report
	if report.DriftDetected {
		risk := report.RiskAssessment.OverallRisk
		riskColor(risk).Fprintf(w, "%s Drift detected in %s\n", RiskEmoji(risk), d.Environment)
		fmt.Fprintf(w, "  %s\n", report.Summary)

		if breakdown := notifier.Breakdown(report.RiskAssessment.RiskDistribution); len(breakdown) > 0 {
			parts := make([]string, 0, len(breakdown))
			for _, entry := range breakdown {
				parts = append(parts, fmt.Sprintf("%d %s", entry.Count, entry.Level))
			}
			fmt.Fprintf(w, "  Risk breakdown: %s\n", strings.Join(parts, ", "))
		}

		if report.CostImpact.MonthlyImpact != 0 {
			fmt.Fprintf(w, "  💰 Cost Impact: %s\n", notifier.FormatCostImpact(report.CostImpact))
		}

		fmt.Fprintln(w, "\n  Recommendations:")
		for _, rec := range notifier.TopRecommendations(report.Recommendations) {
			fmt.Fprintf(w, "    • %s\n", rec)
		}

		if d.AlertSent {
			target := d.AlertTarget
			if target == "" {
				target = "configured destinations"
			}
			fmt.Fprintf(w, "\n  📧 Alert sent to %s\n", target)
		}
	} else {
		successColor.Fprintf(w, "✓ No drift detected in %s\n", d.Environment)
	}

	fmt.Fprintf(w, "\n  Report saved: %s\n", d.ReportLocation)
	return nil
}

// FormatResults prints each environment under a separator, then a tally
func (f *TableFormatter) FormatResults(results []detector.EnvironmentResult, w io.Writer) error {
	width := f.Width
	if width <= 0 {
		width = 50
	}
	rule := strings.Repeat("=", width)

	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++

		fmt.Fprintf(w, "\n%s\n", rule)
		headerColor.Fprintf(w, "Environment: %s\n", r.Environment)
		fmt.Fprintf(w, "%s\n", rule)

		switch r.Status {
		case detector.StatusNoBaseline:
			failureColor.Fprintf(w, "✗ No baseline found for %s. Run 'baseline' first.\n", r.Environment)
		case detector.StatusError:
			failureColor.Fprintf(w, "✗ Drift detection failed for %s: %s\n", r.Environment, r.Error)
		default:
			alertSent := r.AlertSent != nil && *r.AlertSent
			if err := f.FormatDetection(Detection{
				Environment:    r.Environment,
				Report:         r.Report,
				ReportLocation: r.ReportLocation,
				AlertSent:      alertSent,
			}, w); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(w, "\n%d environment(s): %d drifted, %d clean, %d without baseline, %d failed\n",
		len(results),
		counts[detector.StatusDriftDetected],
		counts[detector.StatusNoDrift],
		counts[detector.StatusNoBaseline],
		counts[detector.StatusError])
	return nil
}

// FormatReport prints a stored report with its scored changes
func (f *TableFormatter) FormatReport(report *types.DriftReport, w io.Writer) error {
	headerColor.Fprintf(w, "Drift report for %s\n", report.Environment)
	fmt.Fprintf(w, "  Baseline: %s\n  Current:  %s\n", report.BaselineTimestamp, report.CurrentTimestamp)
	fmt.Fprintf(w, "  %s\n", report.Summary)

	if len(report.RiskAssessment.ScoredChanges) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-9s %-8s %-40s %s\n", "RISK", "CHANGE", "PATH", "REASON")
		for _, sc := range report.RiskAssessment.ScoredChanges {
			riskColor(sc.RiskLevel).Fprintf(w, "  %-9s", sc.RiskLevel)
			fmt.Fprintf(w, " %-8s %-40s %s\n", sc.Kind, sc.Path, sc.Reason)
		}
	}

	if report.CostImpact.MonthlyImpact != 0 {
		fmt.Fprintf(w, "\n  Cost: $%.2f -> $%.2f per month (%s)\n",
			report.CostImpact.BaselineMonthlyCost,
			report.CostImpact.CurrentMonthlyCost,
			notifier.FormatCostImpact(report.CostImpact))
	}

	fmt.Fprintln(w, "\n  Recommendations:")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(w, "    • %s\n", rec)
	}
	return nil
}
