// Package cost prices resource sets against a static rate table. Figures are
// estimates for spotting direction and rough size of drift, not billing data.
package cost

import (
	"math"

	"github.com/yairfalse/driftwatch/pkg/types"
)

// Estimator computes hourly and monthly cost for resource sets. It holds no
// mutable state and is safe for concurrent use.
type Estimator struct {
	rates Rates
}

// NewEstimator creates an estimator over the given rates
func NewEstimator(rates Rates) *Estimator {
	if rates.HoursPerMonth <= 0 {
		rates.HoursPerMonth = DefaultRates().HoursPerMonth
	}
	return &Estimator{rates: rates}
}

// NewDefaultEstimator creates an estimator with the built-in rates
func NewDefaultEstimator() *Estimator {
	return NewEstimator(DefaultRates())
}

// Estimate prices both resource sets and derives the monthly delta
func (e *Estimator) Estimate(baseline, current types.ResourceSet) types.CostImpact {
	baselineMonthly := e.HourlyCost(baseline) * e.rates.HoursPerMonth
	currentMonthly := e.HourlyCost(current) * e.rates.HoursPerMonth
	impact := currentMonthly - baselineMonthly

	percentage := 0.0
	if baselineMonthly > 0 {
		percentage = impact / baselineMonthly * 100
	}

	return types.CostImpact{
		BaselineMonthlyCost: round2(baselineMonthly),
		CurrentMonthlyCost:  round2(currentMonthly),
		MonthlyImpact:       round2(impact),
		ImpactPercentage:    round2(percentage),
	}
}

// HourlyCost sums the hourly cost of every priced category in the set
func (e *Estimator) HourlyCost(rs types.ResourceSet) float64 {
	total := 0.0
	for _, hourly := range e.Breakdown(rs) {
		total += hourly
	}
	return total
}

// Breakdown returns the hourly cost per priced category. Categories outside
// the fixed vocabulary carry no price.
func (e *Estimator) Breakdown(rs types.ResourceSet) map[types.Category]float64 {
	return map[types.Category]float64{
		types.CategoryEC2:    e.ec2(rs.Records(types.CategoryEC2)),
		types.CategoryRDS:    e.rds(rs.Records(types.CategoryRDS)),
		types.CategoryS3:     e.s3(rs.Records(types.CategoryS3)),
		types.CategoryLambda: e.lambda(rs.Records(types.CategoryLambda)),
		types.CategoryECS:    e.ecs(rs.Records(types.CategoryECS)),
		types.CategoryVPC:    e.vpc(rs.Records(types.CategoryVPC)),
	}
}

func (e *Estimator) ec2(records []types.Record) float64 {
	total := 0.0
	for _, rec := range records {
		if rec.String(types.FieldState) != "running" {
			continue
		}
		total += e.rates.EC2[rec.String(types.FieldInstanceType)]
	}
	return total
}

func (e *Estimator) rds(records []types.Record) float64 {
	total := 0.0
	for _, rec := range records {
		total += e.rates.RDS[rec.String(types.FieldDBInstanceClass)]
	}
	return total
}

func (e *Estimator) s3(records []types.Record) float64 {
	perGBHour := e.rates.S3PerGBMonth / e.rates.HoursPerMonth
	return float64(len(records)) * e.rates.S3AssumedGBBucket * perGBHour
}

func (e *Estimator) lambda(records []types.Record) float64 {
	total := 0.0
	for _, rec := range records {
		memoryMB, ok := rec.Number(types.FieldMemorySize)
		if !ok {
			memoryMB = e.rates.LambdaDefaultMemoryMB
		}
		memoryGB, ok := e.rates.LambdaMemoryGB[types.FormatNumber(memoryMB)]
		if !ok {
			memoryGB = e.rates.LambdaFallbackGB
		}
		gbSeconds := e.rates.LambdaInvocations * e.rates.LambdaDurationSeconds * memoryGB
		total += gbSeconds * e.rates.LambdaPerGBSecond / e.rates.HoursPerMonth
	}
	return total
}

func (e *Estimator) ecs(records []types.Record) float64 {
	perTask := e.rates.FargateVCPUHour*e.rates.FargateTaskVCPU + e.rates.FargateGBHour*e.rates.FargateTaskGB
	total := 0.0
	for _, rec := range records {
		count, ok := rec.Number(types.FieldDesiredCount)
		if !ok {
			count = e.rates.ECSDefaultCount
		}
		total += count * perTask
	}
	return total
}

func (e *Estimator) vpc(records []types.Record) float64 {
	total := 0.0
	for _, rec := range records {
		if rec.Bool(types.FieldHasNATGateway) {
			total += e.rates.NATGateway
		}
	}
	return total
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
