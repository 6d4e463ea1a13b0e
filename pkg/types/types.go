package types

import (
	"fmt"
	"strings"
)

// RiskLevel is an ordered severity: info < low < medium < high < critical
type RiskLevel string

const (
	RiskInfo     RiskLevel = "info"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = []RiskLevel{RiskInfo, RiskLow, RiskMedium, RiskHigh, RiskCritical}

// RiskLevels returns all levels in ascending order
func RiskLevels() []RiskLevel {
	levels := make([]RiskLevel, len(riskOrder))
	copy(levels, riskOrder)
	return levels
}

// Rank returns the position of the level in the ordering, -1 when unknown
func (r RiskLevel) Rank() int {
	for i, level := range riskOrder {
		if level == r {
			return i
		}
	}
	return -1
}

// IsValid checks if the level is part of the ordering
func (r RiskLevel) IsValid() bool {
	return r.Rank() >= 0
}

// Less reports whether r is strictly less severe than other
func (r RiskLevel) Less(other RiskLevel) bool {
	return r.Rank() < other.Rank()
}

// Max returns the more severe of two levels
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.Rank() > r.Rank() {
		return other
	}
	return r
}

// Elevate raises the level by one step, saturating at critical
func (r RiskLevel) Elevate() RiskLevel {
	rank := r.Rank()
	if rank < 0 {
		return RiskLow
	}
	if rank+1 >= len(riskOrder) {
		return RiskCritical
	}
	return riskOrder[rank+1]
}

// String returns the string representation of the level
func (r RiskLevel) String() string {
	return string(r)
}

// ParseRiskLevel parses a level case-insensitively
func ParseRiskLevel(s string) (RiskLevel, error) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", fmt.Errorf("invalid risk level %q (expected one of info, low, medium, high, critical)", s)
	}
	return level, nil
}

// MaxRisk returns the most severe level in the list, info when empty
func MaxRisk(levels ...RiskLevel) RiskLevel {
	overall := RiskInfo
	for _, level := range levels {
		overall = overall.Max(level)
	}
	return overall
}
