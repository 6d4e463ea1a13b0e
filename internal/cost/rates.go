package cost

import (
	"fmt"
)

// Rates is the static price table the estimator works from. All prices are
// USD; hourly unless the field name says otherwise.
type Rates struct {
	EC2 map[string]float64 `json:"ec2" yaml:"ec2"`
	RDS map[string]float64 `json:"rds" yaml:"rds"`

	NATGateway float64 `json:"nat_gateway" yaml:"nat_gateway"`

	S3PerGBMonth      float64 `json:"s3_per_gb_month" yaml:"s3_per_gb_month"`
	S3AssumedGBBucket float64 `json:"s3_assumed_gb_per_bucket" yaml:"s3_assumed_gb_per_bucket"`

	LambdaPerGBSecond     float64            `json:"lambda_per_gb_second" yaml:"lambda_per_gb_second"`
	LambdaInvocations     float64            `json:"lambda_invocations_per_month" yaml:"lambda_invocations_per_month"`
	LambdaDurationSeconds float64            `json:"lambda_duration_seconds" yaml:"lambda_duration_seconds"`
	LambdaMemoryGB        map[string]float64 `json:"lambda_memory_gb" yaml:"lambda_memory_gb"`
	LambdaDefaultMemoryMB float64            `json:"lambda_default_memory_mb" yaml:"lambda_default_memory_mb"`
	LambdaFallbackGB      float64            `json:"lambda_fallback_gb" yaml:"lambda_fallback_gb"`

	FargateVCPUHour float64 `json:"fargate_vcpu_hour" yaml:"fargate_vcpu_hour"`
	FargateGBHour   float64 `json:"fargate_gb_hour" yaml:"fargate_gb_hour"`
	FargateTaskVCPU float64 `json:"fargate_task_vcpu" yaml:"fargate_task_vcpu"`
	FargateTaskGB   float64 `json:"fargate_task_gb" yaml:"fargate_task_gb"`
	ECSDefaultCount float64 `json:"ecs_default_desired_count" yaml:"ecs_default_desired_count"`
	HoursPerMonth   float64 `json:"hours_per_month" yaml:"hours_per_month"`
}

// DefaultRates returns us-east-1 on-demand list prices
func DefaultRates() Rates {
	return Rates{
		EC2: map[string]float64{
			"t3.micro":   0.0104,
			"t3.small":   0.0208,
			"t3.medium":  0.0416,
			"t3.large":   0.0832,
			"t3.xlarge":  0.1664,
			"t3.2xlarge": 0.3328,
		},
		RDS: map[string]float64{
			"db.t3.micro":  0.017,
			"db.t3.small":  0.034,
			"db.t3.medium": 0.068,
			"db.t3.large":  0.136,
			"db.t3.xlarge": 0.272,
		},
		NATGateway:        0.045,
		S3PerGBMonth:      0.023,
		S3AssumedGBBucket: 10,

		LambdaPerGBSecond:     0.0000166667,
		LambdaInvocations:     1_000_000,
		LambdaDurationSeconds: 1,
		LambdaMemoryGB: map[string]float64{
			"128":  0.125,
			"256":  0.25,
			"512":  0.5,
			"1024": 1.0,
			"2048": 2.0,
			"3008": 3.0,
		},
		LambdaDefaultMemoryMB: 128,
		LambdaFallbackGB:      0.125,

		FargateVCPUHour: 0.04048,
		FargateGBHour:   0.004445,
		FargateTaskVCPU: 1,
		FargateTaskGB:   2,
		ECSDefaultCount: 1,
		HoursPerMonth:   730,
	}
}

// Merge overlays non-zero values from other onto a copy of r
func (r Rates) Merge(other Rates) Rates {
	merged := r
	merged.EC2 = mergeTable(r.EC2, other.EC2)
	merged.RDS = mergeTable(r.RDS, other.RDS)
	merged.LambdaMemoryGB = mergeTable(r.LambdaMemoryGB, other.LambdaMemoryGB)

	overlay := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	overlay(&merged.NATGateway, other.NATGateway)
	overlay(&merged.S3PerGBMonth, other.S3PerGBMonth)
	overlay(&merged.S3AssumedGBBucket, other.S3AssumedGBBucket)
	overlay(&merged.LambdaPerGBSecond, other.LambdaPerGBSecond)
	overlay(&merged.LambdaInvocations, other.LambdaInvocations)
	overlay(&merged.LambdaDurationSeconds, other.LambdaDurationSeconds)
	overlay(&merged.LambdaDefaultMemoryMB, other.LambdaDefaultMemoryMB)
	overlay(&merged.LambdaFallbackGB, other.LambdaFallbackGB)
	overlay(&merged.FargateVCPUHour, other.FargateVCPUHour)
	overlay(&merged.FargateGBHour, other.FargateGBHour)
	overlay(&merged.FargateTaskVCPU, other.FargateTaskVCPU)
	overlay(&merged.FargateTaskGB, other.FargateTaskGB)
	overlay(&merged.ECSDefaultCount, other.ECSDefaultCount)
	overlay(&merged.HoursPerMonth, other.HoursPerMonth)
	return merged
}

// Validate rejects negative prices and a non-positive month length
func (r Rates) Validate() error {
	if r.HoursPerMonth <= 0 {
		return fmt.Errorf("hours_per_month must be positive, got %v", r.HoursPerMonth)
	}
	for name, table := range map[string]map[string]float64{"ec2": r.EC2, "rds": r.RDS, "lambda_memory_gb": r.LambdaMemoryGB} {
		for key, v := range table {
			if v < 0 {
				return fmt.Errorf("%s[%s]: negative rate %v", name, key, v)
			}
		}
	}
	return nil
}

func mergeTable(base, overlay map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
