package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Category identifies a family of cloud resources inside a snapshot
type Category string

const (
	CategoryVPC    Category = "vpc"
	CategoryEC2    Category = "ec2"
	CategoryRDS    Category = "rds"
	CategoryS3     Category = "s3"
	CategoryLambda Category = "lambda"
	CategoryECS    Category = "ecs"
)

// Categories is the canonical category order used for scanning and diffing
var Categories = []Category{
	CategoryVPC,
	CategoryEC2,
	CategoryRDS,
	CategoryS3,
	CategoryLambda,
	CategoryECS,
}

// IsKnown reports whether the category is part of the fixed vocabulary
func (c Category) IsKnown() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Well-known record fields written by the scanner and read by the cost model.
const (
	FieldVPCID            = "vpc_id"
	FieldCIDRBlock        = "cidr_block"
	FieldState            = "state"
	FieldTags             = "tags"
	FieldSubnets          = "subnets"
	FieldSubnetID         = "subnet_id"
	FieldAvailabilityZone = "availability_zone"
	FieldHasNATGateway    = "has_nat_gateway"
	FieldInstanceID       = "instance_id"
	FieldInstanceType     = "instance_type"
	FieldDBIdentifier     = "db_instance_identifier"
	FieldDBInstanceClass  = "db_instance_class"
	FieldEngine           = "engine"
	FieldBucketName       = "bucket_name"
	FieldFunctionName     = "function_name"
	FieldRuntime          = "runtime"
	FieldMemorySize       = "memory_size"
	FieldServiceName      = "service_name"
	FieldDesiredCount     = "desired_count"
)

// Record is one resource as an open-ended map of attributes
type Record map[string]any

// String returns the attribute as a string, or "" when absent or not a string
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Number returns a numeric attribute regardless of its concrete Go type
func (r Record) Number(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

// Bool returns a boolean attribute, false when absent
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Clone deep-copies the record through its JSON form
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		shallow := make(Record, len(r))
		for k, v := range r {
			shallow[k] = v
		}
		return shallow
	}
	var cloned Record
	if err := json.Unmarshal(data, &cloned); err != nil {
		shallow := make(Record, len(r))
		for k, v := range r {
			shallow[k] = v
		}
		return shallow
	}
	return cloned
}

// ResourceSet maps each category to its records. A missing category is empty.
type ResourceSet map[Category][]Record

// Records returns the records of a category, nil when the category is absent
func (rs ResourceSet) Records(cat Category) []Record {
	if rs == nil {
		return nil
	}
	return rs[cat]
}

// Count returns the total number of records across all categories
func (rs ResourceSet) Count() int {
	total := 0
	for _, records := range rs {
		total += len(records)
	}
	return total
}

// OrderedCategories returns the known categories in canonical order followed by
// any additional categories present in the set, sorted by name.
func (rs ResourceSet) OrderedCategories() []Category {
	ordered := make([]Category, len(Categories))
	copy(ordered, Categories)

	var extra []Category
	for cat := range rs {
		if !cat.IsKnown() {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	return append(ordered, extra...)
}

// Clone deep-copies the resource set
func (rs ResourceSet) Clone() ResourceSet {
	if rs == nil {
		return nil
	}
	cloned := make(ResourceSet, len(rs))
	for cat, records := range rs {
		copied := make([]Record, len(records))
		for i, rec := range records {
			copied[i] = rec.Clone()
		}
		cloned[cat] = copied
	}
	return cloned
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatNumber renders a numeric value without a trailing fraction when whole
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%g", f)
}
