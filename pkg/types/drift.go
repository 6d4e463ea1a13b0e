package types

import (
	"fmt"
	"strings"
)

// ChangeKind represents the kind of change detected between snapshots
type ChangeKind string

const (
	// ChangeAdded indicates a record exists only in the current snapshot
	ChangeAdded ChangeKind = "added"
	// ChangeRemoved indicates a record exists only in the baseline
	ChangeRemoved ChangeKind = "removed"
	// ChangeChanged indicates a field differs on a paired record
	ChangeChanged ChangeKind = "changed"
)

// IsValid checks if the ChangeKind is valid
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeAdded, ChangeRemoved, ChangeChanged:
		return true
	default:
		return false
	}
}

// String returns the string representation of ChangeKind
func (k ChangeKind) String() string {
	return string(k)
}

// Change locates one difference between a baseline and a current snapshot.
// Index refers to the baseline for removed and changed entries and to the
// current snapshot for added entries.
type Change struct {
	Category  Category   `json:"category" yaml:"category"`
	Index     int        `json:"index" yaml:"index"`
	Identity  string     `json:"identity,omitempty" yaml:"identity,omitempty"`
	Kind      ChangeKind `json:"kind" yaml:"kind"`
	Field     string     `json:"field,omitempty" yaml:"field,omitempty"`
	FieldPath string     `json:"field_path,omitempty" yaml:"field_path,omitempty"`
	Before    any        `json:"before,omitempty" yaml:"before,omitempty"`
	After     any        `json:"after,omitempty" yaml:"after,omitempty"`
}

// Path renders the display path of the change, e.g. ec2[0].instance_type
func (c Change) Path() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s[%d]", c.Category, c.Index))
	if c.FieldPath != "" {
		if !strings.HasPrefix(c.FieldPath, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(c.FieldPath)
	}
	return sb.String()
}

// ScoredChange is a change annotated with its risk
type ScoredChange struct {
	Path         string     `json:"path" yaml:"path"`
	Kind         ChangeKind `json:"change_type" yaml:"change_type"`
	ResourceType string     `json:"resource_type" yaml:"resource_type"`
	FieldName    string     `json:"field_name" yaml:"field_name"`
	RiskLevel    RiskLevel  `json:"risk_level" yaml:"risk_level"`
	Reason       string     `json:"reason" yaml:"reason"`
}

// RiskAssessment aggregates scored changes into an overall verdict
type RiskAssessment struct {
	OverallRisk      RiskLevel         `json:"overall_risk" yaml:"overall_risk"`
	ScoredChanges    []ScoredChange    `json:"scored_changes" yaml:"scored_changes"`
	RiskDistribution map[RiskLevel]int `json:"risk_distribution" yaml:"risk_distribution"`
}

// NewRiskDistribution returns a distribution with every level set to zero
func NewRiskDistribution() map[RiskLevel]int {
	dist := make(map[RiskLevel]int, len(riskOrder))
	for _, level := range riskOrder {
		dist[level] = 0
	}
	return dist
}

// CostImpact is the estimated monthly cost difference between two snapshots
type CostImpact struct {
	BaselineMonthlyCost float64 `json:"baseline_monthly_cost" yaml:"baseline_monthly_cost"`
	CurrentMonthlyCost  float64 `json:"current_monthly_cost" yaml:"current_monthly_cost"`
	MonthlyImpact       float64 `json:"monthly_impact" yaml:"monthly_impact"`
	ImpactPercentage    float64 `json:"impact_percentage" yaml:"impact_percentage"`
}

// IsZero reports whether the impact carries no monetary difference
func (c CostImpact) IsZero() bool {
	return c.MonthlyImpact == 0
}

// DriftSummary groups change paths by kind
type DriftSummary struct {
	Added   []string `json:"added" yaml:"added"`
	Removed []string `json:"removed" yaml:"removed"`
	Changed []string `json:"changed" yaml:"changed"`
}

// DriftReport is the final artifact of one detection run
type DriftReport struct {
	Environment       string         `json:"environment" yaml:"environment"`
	BaselineTimestamp string         `json:"baseline_timestamp" yaml:"baseline_timestamp"`
	CurrentTimestamp  string         `json:"current_timestamp" yaml:"current_timestamp"`
	DriftDetected     bool           `json:"drift_detected" yaml:"drift_detected"`
	Summary           string         `json:"summary" yaml:"summary"`
	Details           DriftSummary   `json:"details" yaml:"details"`
	RiskAssessment    RiskAssessment `json:"risk_assessment" yaml:"risk_assessment"`
	CostImpact        CostImpact     `json:"cost_impact" yaml:"cost_impact"`
	Recommendations   []string       `json:"recommendations" yaml:"recommendations"`
}
