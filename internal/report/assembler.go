// Package report merges diff, risk and cost results into a DriftReport.
package report

import (
	"fmt"
	"strings"

	"github.com/yairfalse/driftwatch/internal/differ"
	"github.com/yairfalse/driftwatch/pkg/types"
)

const (
	NoDriftSummary        = "No drift detected. Infrastructure matches baseline."
	RecContinueMonitoring = "Continue monitoring for drift."
	RecCritical           = "⚠️  CRITICAL: Immediate action required - review all changes"
	RecHigh               = "⚠️  HIGH RISK: Review changes within 24 hours"
	RecRemoved            = "Investigate removed resources - potential data loss risk"
	RecAdded              = "Verify added resources are authorized and properly tagged"
	RecChanged            = "Review configuration changes for security implications"
	RecUpdateBaseline     = "Update baseline if changes are intentional"
)

// Assemble builds the final report for one comparison
func Assemble(result *differ.Result, assessment types.RiskAssessment, impact types.CostImpact) *types.DriftReport {
	if result == nil {
		result = &differ.Result{}
	}
	if assessment.OverallRisk == "" {
		assessment.OverallRisk = types.RiskInfo
	}
	if assessment.RiskDistribution == nil {
		assessment.RiskDistribution = types.NewRiskDistribution()
	}
	if assessment.ScoredChanges == nil {
		assessment.ScoredChanges = []types.ScoredChange{}
	}

	details := types.DriftSummary{
		Added:   nonNil(result.Categorized.Added),
		Removed: nonNil(result.Categorized.Removed),
		Changed: nonNil(result.Categorized.Changed),
	}

	report := &types.DriftReport{
		Environment:       result.Environment,
		BaselineTimestamp: result.BaselineTimestamp,
		CurrentTimestamp:  result.CurrentTimestamp,
		DriftDetected:     result.DriftDetected,
		Details:           details,
		RiskAssessment:    assessment,
		CostImpact:        impact,
	}

	if !result.DriftDetected {
		report.Summary = NoDriftSummary
		report.Recommendations = []string{RecContinueMonitoring}
		return report
	}

	report.Summary = Summary(details, assessment.OverallRisk)
	report.Recommendations = Recommendations(details, assessment.OverallRisk)
	return report
}

// Summary renders the one-line drift summary
func Summary(details types.DriftSummary, overall types.RiskLevel) string {
	return fmt.Sprintf("Drift detected: %d added, %d removed, %d changed. Risk: %s",
		len(details.Added), len(details.Removed), len(details.Changed),
		strings.ToUpper(string(overall)))
}

// Recommendations lists follow-up actions in fixed priority order
func Recommendations(details types.DriftSummary, overall types.RiskLevel) []string {
	var recs []string

	switch overall {
	case types.RiskCritical:
		recs = append(recs, RecCritical)
	case types.RiskHigh:
		recs = append(recs, RecHigh)
	}

	if len(details.Removed) > 0 {
		recs = append(recs, RecRemoved)
	}
	if len(details.Added) > 0 {
		recs = append(recs, RecAdded)
	}
	if len(details.Changed) > 0 {
		recs = append(recs, RecChanged)
	}

	return append(recs, RecUpdateBaseline)
}

func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
