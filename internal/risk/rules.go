package risk

import (
	"fmt"

	"github.com/yairfalse/driftwatch/pkg/types"
)

// UnknownName is used for resource types and field names that cannot be
// resolved from a change.
const UnknownName = "unknown"

// Rules holds the lookup tables used to score changes. Tables are read-only
// once handed to a Scorer.
type Rules struct {
	ResourceRisk   map[string]types.RiskLevel `mapstructure:"resource_risk" yaml:"resource_risk"`
	ChangeRisk     map[string]types.RiskLevel `mapstructure:"change_risk" yaml:"change_risk"`
	CriticalFields []string                   `mapstructure:"critical_fields" yaml:"critical_fields"`
	Reasons        map[string]string          `mapstructure:"reasons" yaml:"reasons"`
	DefaultReason  string                     `mapstructure:"default_reason" yaml:"default_reason"`
}

// DefaultRules returns the built-in sensitivity tables
func DefaultRules() Rules {
	return Rules{
		ResourceRisk: map[string]types.RiskLevel{
			"rds":    types.RiskCritical,
			"vpc":    types.RiskHigh,
			"ec2":    types.RiskHigh,
			"ecs":    types.RiskHigh,
			"s3":     types.RiskMedium,
			"lambda": types.RiskMedium,
		},
		ChangeRisk: map[string]types.RiskLevel{
			"removed": types.RiskCritical,
			"added":   types.RiskMedium,
			"changed": types.RiskMedium,
		},
		CriticalFields: []string{
			"instance_type",
			"db_instance_class",
			"cidr_block",
			"state",
			"engine",
			"runtime",
			"desired_count",
			"memory_size",
		},
		Reasons: map[string]string{
			"rds":    "Database changes can cause downtime or data loss",
			"vpc":    "Network changes can break connectivity",
			"ec2":    "Compute changes affect performance and cost",
			"ecs":    "Container changes can disrupt services",
			"lambda": "Function changes may break integrations",
			"s3":     "Storage changes can affect data access",
		},
		DefaultReason: "Infrastructure change detected",
	}
}

// Merge overlays non-empty tables from other onto a copy of r
func (r Rules) Merge(other Rules) Rules {
	merged := Rules{
		ResourceRisk:   copyLevels(r.ResourceRisk),
		ChangeRisk:     copyLevels(r.ChangeRisk),
		CriticalFields: append([]string(nil), r.CriticalFields...),
		Reasons:        make(map[string]string, len(r.Reasons)),
		DefaultReason:  r.DefaultReason,
	}
	for k, v := range r.Reasons {
		merged.Reasons[k] = v
	}

	for k, v := range other.ResourceRisk {
		merged.ResourceRisk[k] = v
	}
	for k, v := range other.ChangeRisk {
		merged.ChangeRisk[k] = v
	}
	if len(other.CriticalFields) > 0 {
		merged.CriticalFields = append([]string(nil), other.CriticalFields...)
	}
	for k, v := range other.Reasons {
		merged.Reasons[k] = v
	}
	if other.DefaultReason != "" {
		merged.DefaultReason = other.DefaultReason
	}
	return merged
}

// Validate checks that every level in the tables is part of the ordering
func (r Rules) Validate() error {
	for name, level := range r.ResourceRisk {
		if !level.IsValid() {
			return fmt.Errorf("resource_risk[%s]: invalid risk level %q", name, level)
		}
	}
	for kind, level := range r.ChangeRisk {
		if !level.IsValid() {
			return fmt.Errorf("change_risk[%s]: invalid risk level %q", kind, level)
		}
	}
	if r.DefaultReason == "" {
		return fmt.Errorf("default_reason must not be empty")
	}
	return nil
}

func copyLevels(in map[string]types.RiskLevel) map[string]types.RiskLevel {
	out := make(map[string]types.RiskLevel, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
