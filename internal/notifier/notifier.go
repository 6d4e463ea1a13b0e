// Package notifier formats drift reports into alerts and delivers them over
// SNS or a Slack incoming webhook.
package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/yairfalse/driftwatch/internal/logger"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// MaxRecommendations is the number of recommendations included in an alert
const MaxRecommendations = 3

// Message is a rendered alert
type Message struct {
	Subject string
	Body    string
	Risk    types.RiskLevel
}

// Transport delivers a message to a destination and returns a message id
type Transport interface {
	Name() string
	Send(ctx context.Context, destination string, msg Message) (string, error)
}

// Notifier applies the risk threshold and hands alerts to a transport
type Notifier struct {
	transport Transport
	logger    logger.Logger
}

// New creates a Notifier on top of transport
func New(transport Transport, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &Notifier{transport: transport, logger: log}
}

// Route binds a notifier to the destination it publishes to
type Route struct {
	Notifier    *Notifier
	Destination string
}

// Notify sends an alert for report unless its overall risk ranks strictly
// below minimum. It returns the message id and whether a message was sent.
// Transport failures are logged and reported as not sent.
func (n *Notifier) Notify(ctx context.Context, report *types.DriftReport, destination string, minimum types.RiskLevel) (string, bool) {
	if report == nil {
		return "", false
	}

	if !minimum.IsValid() {
		minimum = types.RiskHigh
	}

	risk := report.RiskAssessment.OverallRisk
	log := n.logger.WithFields(map[string]interface{}{
		"environment": report.Environment,
		"risk":        string(risk),
		"transport":   n.transport.Name(),
	})

	if risk.Rank() < minimum.Rank() {
		log.Info(fmt.Sprintf("Skipping alert - risk %s below threshold %s", risk, minimum))
		return "", false
	}

	msg := Message{
		Subject: Subject(report),
		Body:    Body(report),
		Risk:    risk,
	}

	id, err := n.transport.Send(ctx, destination, msg)
	if err != nil {
		log.Error("Failed to send drift alert", err)
		return "", false
	}

	log.WithField("message_id", id).Info("Drift alert sent")
	return id, true
}

// Subject renders "<emoji> <LEVEL> Drift Detected: <env>"
func Subject(report *types.DriftReport) string {
	risk := report.RiskAssessment.OverallRisk
	return fmt.Sprintf("%s %s Drift Detected: %s", emoji(risk), strings.ToUpper(string(risk)), report.Environment)
}

// Body renders the plain-text alert body
func Body(report *types.DriftReport) string {
	assessment := report.RiskAssessment
	lines := []string{
		fmt.Sprintf("Environment: %s", report.Environment),
		fmt.Sprintf("Risk Level: %s", strings.ToUpper(string(assessment.OverallRisk))),
		"",
		fmt.Sprintf("Summary: %s", report.Summary),
		"",
	}

	if breakdown := Breakdown(assessment.RiskDistribution); len(breakdown) > 0 {
		lines = append(lines, "Risk Breakdown:")
		for _, entry := range breakdown {
			lines = append(lines, fmt.Sprintf("  - %s: %d", titleCase(string(entry.Level)), entry.Count))
		}
		lines = append(lines, "")
	}

	if impact := report.CostImpact; impact.MonthlyImpact != 0 {
		lines = append(lines, "Cost Impact: "+FormatCostImpact(impact), "")
	}

	lines = append(lines, "Recommendations:")
	for _, rec := range TopRecommendations(report.Recommendations) {
		lines = append(lines, "  • "+rec)
	}

	return strings.Join(lines, "\n")
}

// LevelCount is one entry of a risk breakdown
type LevelCount struct {
	Level types.RiskLevel
	Count int
}

// Breakdown lists non-zero, non-info counts from the most to the least severe
func Breakdown(distribution map[types.RiskLevel]int) []LevelCount {
	levels := types.RiskLevels()
	var out []LevelCount
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		if level == types.RiskInfo {
			continue
		}
		if count := distribution[level]; count > 0 {
			out = append(out, LevelCount{Level: level, Count: count})
		}
	}
	return out
}

// FormatCostImpact renders "+$12.34/month (+5.0%)"
func FormatCostImpact(impact types.CostImpact) string {
	sign := ""
	if impact.MonthlyImpact > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s$%.2f/month (%+.1f%%)", sign, impact.MonthlyImpact, impact.ImpactPercentage)
}

// TopRecommendations returns at most MaxRecommendations entries
func TopRecommendations(recs []string) []string {
	if len(recs) > MaxRecommendations {
		return recs[:MaxRecommendations]
	}
	return recs
}

func emoji(risk types.RiskLevel) string {
	switch risk {
	case types.RiskCritical:
		return "🚨"
	case types.RiskHigh:
		return "⚠️"
	case types.RiskMedium:
		return "⚠"
	default:
		return "ℹ️"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
