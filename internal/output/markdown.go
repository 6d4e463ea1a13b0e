package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/internal/notifier"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// MarkdownFormatter writes reports suitable for pull requests and wikis
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatSaved(saved Saved, w io.Writer) error {
	fmt.Fprintf(w, "## %s saved\n\n", titleKind(saved.Kind))
	fmt.Fprintf(w, "Location: `%s`\n\n", saved.Location)
	if saved.Snapshot == nil {
		return nil
	}

	fmt.Fprintln(w, "| Category | Resources |")
	fmt.Fprintln(w, "|----------|-----------|")
	for _, cat := range saved.Snapshot.Resources.OrderedCategories() {
		fmt.Fprintf(w, "| %s | %d |\n", cat, len(saved.Snapshot.Resources.Records(cat)))
	}
	return nil
}

func (f *MarkdownFormatter) FormatDetection(d Detection, w io.Writer) error {
	if d.Report == nil {
		return fmt.Errorf("detection for %s has no report", d.Environment)
	}
	if err := f.FormatReport(d.Report, w); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nReport: `%s`\n", d.ReportLocation)
	if d.AlertSent {
		fmt.Fprintln(w, "\nAlert sent.")
	}
	return nil
}

func (f *MarkdownFormatter) FormatResults(results []detector.EnvironmentResult, w io.Writer) error {
	fmt.Fprintln(w, "# Drift Detection Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Environment | Status | Risk | Alert |")
	fmt.Fprintln(w, "|-------------|--------|------|-------|")
	for _, r := range results {
		risk, alert := "-", "-"
		if r.Risk != "" {
			risk = string(r.Risk)
		}
		if r.AlertSent != nil {
			alert = fmt.Sprintf("%t", *r.AlertSent)
		}
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n", r.Environment, r.Status, risk, alert)
	}

	for _, r := range results {
		if r.Report == nil || !r.Report.DriftDetected {
			continue
		}
		fmt.Fprintln(w)
		if err := f.FormatReport(r.Report, w); err != nil {
			return err
		}
	}
	return nil
}

func (f *MarkdownFormatter) FormatReport(report *types.DriftReport, w io.Writer) error {
	fmt.Fprintf(w, "## %s Drift report: %s\n\n", RiskEmoji(report.RiskAssessment.OverallRisk), report.Environment)
	fmt.Fprintf(w, "- **Baseline:** %s\n", report.BaselineTimestamp)
	fmt.Fprintf(w, "- **Current:** %s\n", report.CurrentTimestamp)
	fmt.Fprintf(w, "- **Risk:** %s\n", strings.ToUpper(string(report.RiskAssessment.OverallRisk)))
	if !report.CostImpact.IsZero() {
		fmt.Fprintf(w, "- **Cost impact:** %s\n", notifier.FormatCostImpact(report.CostImpact))
	}
	fmt.Fprintf(w, "\n%s\n", report.Summary)

	if len(report.RiskAssessment.ScoredChanges) > 0 {
		fmt.Fprintln(w, "\n| Risk | Change | Path | Reason |")
		fmt.Fprintln(w, "|------|--------|------|--------|")
		for _, sc := range report.RiskAssessment.ScoredChanges {
			fmt.Fprintf(w, "| %s | %s | `%s` | %s |\n", sc.RiskLevel, sc.Kind, sc.Path, escapePipes(sc.Reason))
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(w, "\n### Recommendations")
		fmt.Fprintln(w)
		for _, rec := range report.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
	}
	return nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func titleKind(kind string) string {
	if kind == "" {
		return "Snapshot"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
