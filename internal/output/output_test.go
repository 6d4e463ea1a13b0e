package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/pkg/types"
	"gopkg.in/yaml.v3"
)

func init() {
	color.NoColor = true
}

func driftedReport() *types.DriftReport {
	dist := types.NewRiskDistribution()
	dist[types.RiskCritical] = 1
	dist[types.RiskHigh] = 2
	dist[types.RiskMedium] = 1

	return &types.DriftReport{
		Environment:       "prod",
		BaselineTimestamp: "2024-01-01T00:00:00Z",
		CurrentTimestamp:  "2024-01-02T00:00:00Z",
		DriftDetected:     true,
		Summary:           "Detected 4 changes: 1 added, 0 removed, 3 changed",
		RiskAssessment: types.RiskAssessment{
			OverallRisk: types.RiskCritical,
			ScoredChanges: []types.ScoredChange{
				{Path: "rds[0].encrypted", Kind: types.ChangeChanged, ResourceType: "rds", FieldName: "encrypted", RiskLevel: types.RiskCritical, Reason: "encrypted changed on rds"},
			},
			RiskDistribution: dist,
		},
		CostImpact: types.CostImpact{
			BaselineMonthlyCost: 100,
			CurrentMonthlyCost:  150,
			MonthlyImpact:       50,
			ImpactPercentage:    50,
		},
		Recommendations: []string{"one", "two", "three", "four"},
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format string
		want   Formatter
	}{
		{"table", &TableFormatter{}},
		{"", &TableFormatter{}},
		{"json", &JSONFormatter{}},
		{"YAML", &YAMLFormatter{}},
		{"md", &MarkdownFormatter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}

	_, err := NewFormatter("xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestTableFormatter_Detection(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{Width: 50}

	err := f.FormatDetection(Detection{
		Environment:    "prod",
		Report:         driftedReport(),
		ReportLocation: "s3://drift/reports/prod/20240102-000000.json",
		AlertSent:      true,
		AlertTarget:    "SNS topic",
	}, &buf)
	require.NoError(t, err)

	expected := "🚨 Drift detected in prod\n" +
		"  Detected 4 changes: 1 added, 0 removed, 3 changed\n" +
		"  Risk breakdown: 1 critical, 2 high, 1 medium\n" +
		"  💰 Cost Impact: +$50.00/month (+50.0%)\n" +
		"\n  Recommendations:\n" +
		"    • one\n    • two\n    • three\n" +
		"\n  📧 Alert sent to SNS topic\n" +
		"\n  Report saved: s3://drift/reports/prod/20240102-000000.json\n"
	assert.Equal(t, expected, buf.String())
}

func TestTableFormatter_NoDrift(t *testing.T) {
	var buf bytes.Buffer
	report := &types.DriftReport{Environment: "dev", Summary: "No drift detected"}

	err := (&TableFormatter{}).FormatDetection(Detection{Environment: "dev", Report: report, ReportLocation: "/tmp/r.json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "✓ No drift detected in dev\n\n  Report saved: /tmp/r.json\n", buf.String())
}

func TestTableFormatter_Results(t *testing.T) {
	var buf bytes.Buffer
	sent := false
	results := []detector.EnvironmentResult{
		{Environment: "dev", Status: detector.StatusNoBaseline},
		{Environment: "prod", Status: detector.StatusDriftDetected, Risk: types.RiskCritical, AlertSent: &sent, ReportLocation: "r.json", Report: driftedReport()},
		{Environment: "qa", Status: detector.StatusError, Error: "AccessDenied"},
	}

	require.NoError(t, (&TableFormatter{Width: 10}).FormatResults(results, &buf))

	out := buf.String()
	assert.Contains(t, out, "==========\nEnvironment: dev\n==========\n")
	assert.Contains(t, out, "✗ No baseline found for dev. Run 'baseline' first.")
	assert.Contains(t, out, "🚨 Drift detected in prod")
	assert.NotContains(t, out, "Alert sent")
	assert.Contains(t, out, "✗ Drift detection failed for qa: AccessDenied")
	assert.Contains(t, out, "3 environment(s): 1 drifted, 0 clean, 1 without baseline, 1 failed")
}

func TestTableFormatter_Saved(t *testing.T) {
	var buf bytes.Buffer
	snapshot := &types.Snapshot{
		Environment: "dev",
		Resources: types.ResourceSet{
			types.Category("ec2"): {types.Record{"instance_id": "i-1"}, types.Record{"instance_id": "i-2"}},
		},
	}

	require.NoError(t, (&TableFormatter{}).FormatSaved(Saved{Kind: "baseline", Location: "baselines/dev.json", Snapshot: snapshot}, &buf))
	assert.Contains(t, buf.String(), "✓ Baseline created: baselines/dev.json")
	assert.Contains(t, buf.String(), "ec2")

	buf.Reset()
	require.NoError(t, (&TableFormatter{}).FormatSaved(Saved{Kind: "scan", Location: "scans/dev/x.json"}, &buf))
	assert.Equal(t, "✓ Scan completed: scans/dev/x.json\n", buf.String())
}

func TestJSONFormatter_Results(t *testing.T) {
	var buf bytes.Buffer
	sent := true
	results := []detector.EnvironmentResult{
		{Environment: "prod", Status: detector.StatusDriftDetected, Risk: types.RiskHigh, AlertSent: &sent, Report: driftedReport()},
		{Environment: "dev", Status: detector.StatusNoBaseline},
	}

	require.NoError(t, (&JSONFormatter{}).FormatResults(results, &buf))

	var decoded struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, "high", decoded.Results[0]["risk"])
	assert.Equal(t, true, decoded.Results[0]["alert_sent"])
	assert.NotContains(t, decoded.Results[0], "report")
	assert.NotContains(t, decoded.Results[1], "risk")
}

func TestYAMLFormatter_Report(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).FormatReport(driftedReport(), &buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "prod", decoded["environment"])
	assert.Equal(t, true, decoded["drift_detected"])
	assert.Contains(t, buf.String(), "overall_risk: critical")
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	report := driftedReport()
	report.RiskAssessment.ScoredChanges[0].Reason = "a|b"

	require.NoError(t, (&MarkdownFormatter{}).FormatDetection(Detection{Environment: "prod", Report: report, ReportLocation: "r.json"}, &buf))

	out := buf.String()
	assert.Contains(t, out, "## 🚨 Drift report: prod")
	assert.Contains(t, out, "- **Risk:** CRITICAL")
	assert.Contains(t, out, "| critical | changed | `rds[0].encrypted` | a\\|b |")
	assert.Contains(t, out, "- four")
	assert.Contains(t, out, "Report: `r.json`")
}

func TestRiskEmoji(t *testing.T) {
	assert.Equal(t, "🚨", RiskEmoji(types.RiskCritical))
	assert.Equal(t, "⚠️", RiskEmoji(types.RiskHigh))
	assert.Equal(t, "⚠", RiskEmoji(types.RiskMedium))
	assert.Equal(t, "ℹ️", RiskEmoji(types.RiskLow))
	assert.Equal(t, "✓", RiskEmoji(types.RiskInfo))
	assert.Equal(t, "⚠", RiskEmoji(types.RiskLevel("unknown")))
}
