// Package risk scores structural changes by resource sensitivity and change
// kind, and aggregates them into an overall verdict.
package risk

import (
	"fmt"

	"github.com/yairfalse/driftwatch/internal/differ"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// Scorer assigns a risk level to every change in a diff result
type Scorer struct {
	rules    Rules
	critical map[string]struct{}
}

// NewScorer creates a scorer over the given rules
func NewScorer(rules Rules) *Scorer {
	critical := make(map[string]struct{}, len(rules.CriticalFields))
	for _, f := range rules.CriticalFields {
		critical[f] = struct{}{}
	}
	if rules.DefaultReason == "" {
		rules.DefaultReason = DefaultRules().DefaultReason
	}
	return &Scorer{rules: rules, critical: critical}
}

// NewDefaultScorer creates a scorer with the built-in tables
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultRules())
}

// Score classifies added, then removed, then changed entries
func (s *Scorer) Score(result *differ.Result) types.RiskAssessment {
	assessment := types.RiskAssessment{
		OverallRisk:      types.RiskInfo,
		ScoredChanges:    []types.ScoredChange{},
		RiskDistribution: types.NewRiskDistribution(),
	}
	if result == nil {
		return assessment
	}

	for _, kind := range []types.ChangeKind{types.ChangeAdded, types.ChangeRemoved, types.ChangeChanged} {
		for _, change := range result.ChangesOfKind(kind) {
			scored := s.ScoreChange(change)
			assessment.ScoredChanges = append(assessment.ScoredChanges, scored)
			assessment.RiskDistribution[scored.RiskLevel]++
			assessment.OverallRisk = assessment.OverallRisk.Max(scored.RiskLevel)
		}
	}

	return assessment
}

// ScoreChange classifies a single change
func (s *Scorer) ScoreChange(change types.Change) types.ScoredChange {
	resourceType := string(change.Category)
	base, known := s.rules.ResourceRisk[resourceType]
	if !known || !base.IsValid() {
		resourceType = UnknownName
		base = types.RiskLow
	}

	kindRisk, ok := s.rules.ChangeRisk[string(change.Kind)]
	if !ok || !kindRisk.IsValid() {
		kindRisk = types.RiskLow
	}

	fieldName := UnknownName
	if change.Kind == types.ChangeChanged && change.Field != "" {
		fieldName = change.Field
	}

	level := base.Max(kindRisk)
	_, criticalField := s.critical[fieldName]
	if criticalField {
		level = level.Elevate()
	}

	reason, ok := s.rules.Reasons[resourceType]
	if !ok || reason == "" {
		reason = s.rules.DefaultReason
	}
	switch {
	case change.Kind == types.ChangeRemoved:
		reason += " - Resource removed"
	case criticalField:
		reason += fmt.Sprintf(" - Critical field '%s' modified", fieldName)
	}

	return types.ScoredChange{
		Path:         change.Path(),
		Kind:         change.Kind,
		ResourceType: resourceType,
		FieldName:    fieldName,
		RiskLevel:    level,
		Reason:       reason,
	}
}
