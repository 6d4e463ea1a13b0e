package differ

import (
	"fmt"
	"sort"

	"github.com/yairfalse/driftwatch/pkg/types"
)

// IdentityFields are tried in order to pair a baseline record with its
// current counterpart when their content differs.
var IdentityFields = []string{
	"id",
	types.FieldInstanceID,
	types.FieldVPCID,
	types.FieldDBIdentifier,
	types.FieldBucketName,
	types.FieldFunctionName,
	types.FieldServiceName,
	types.FieldSubnetID,
	"arn",
	"name",
}

// DefaultSimilarityThreshold is the minimum share of equal fields for two
// records without a shared identity to be treated as the same resource.
const DefaultSimilarityThreshold = 0.5

// recordMatch pairs a baseline record with a current record by index
type recordMatch struct {
	Baseline int
	Current  int
}

// matchResult is the outcome of matching one category
type matchResult struct {
	Pairs     []recordMatch
	Removed   []int
	Added     []int
	Unchanged int
}

// recordMatcher pairs records of one category
type recordMatcher struct {
	threshold float64
}

// Match removes exact content matches with multiplicity, then pairs the
// remaining records by identity and finally by similarity.
func (m *recordMatcher) Match(baseline, current []types.Record) matchResult {
	var result matchResult

	baseKeys := make([]string, len(baseline))
	for i, rec := range baseline {
		baseKeys[i] = canonicalKey(rec)
	}
	available := make(map[string][]int)
	for i, key := range baseKeys {
		available[key] = append(available[key], i)
	}

	baseUsed := make([]bool, len(baseline))
	currUsed := make([]bool, len(current))
	currKeys := make([]string, len(current))
	for j, rec := range current {
		key := canonicalKey(rec)
		currKeys[j] = key
		queue := available[key]
		if len(queue) == 0 {
			continue
		}
		baseUsed[queue[0]] = true
		currUsed[j] = true
		available[key] = queue[1:]
		result.Unchanged++
	}

	// Pair leftovers sharing an identity value, then what remains by
	// similarity. Candidates are ranked by content so record order within a
	// category never decides a pairing.
	var byIdentity []candidate
	for i := range baseline {
		if baseUsed[i] {
			continue
		}
		field, value, ok := identityOf(baseline[i])
		if !ok {
			continue
		}
		for j := range current {
			if !currUsed[j] && identityValue(current[j], field) == value {
				byIdentity = append(byIdentity, candidate{base: i, curr: j, score: similarity(baseline[i], current[j])})
			}
		}
	}
	result.Pairs = append(result.Pairs, assign(byIdentity, baseKeys, currKeys, baseUsed, currUsed)...)

	var bySimilarity []candidate
	for i := range baseline {
		if baseUsed[i] {
			continue
		}
		for j := range current {
			if currUsed[j] || conflictingIdentity(baseline[i], current[j]) {
				continue
			}
			if score := similarity(baseline[i], current[j]); score >= m.threshold && score > 0 {
				bySimilarity = append(bySimilarity, candidate{base: i, curr: j, score: score})
			}
		}
	}
	result.Pairs = append(result.Pairs, assign(bySimilarity, baseKeys, currKeys, baseUsed, currUsed)...)

	for i, used := range baseUsed {
		if !used {
			result.Removed = append(result.Removed, i)
		}
	}
	for j, used := range currUsed {
		if !used {
			result.Added = append(result.Added, j)
		}
	}

	return result
}

// candidate is an admissible baseline/current pairing
type candidate struct {
	base  int
	curr  int
	score float64
}

// assign pairs candidates greedily, highest score first, ties ordered by the
// records' canonical keys.
func assign(candidates []candidate, baseKeys, currKeys []string, baseUsed, currUsed []bool) []recordMatch {
	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.score != cb.score {
			return ca.score > cb.score
		}
		if baseKeys[ca.base] != baseKeys[cb.base] {
			return baseKeys[ca.base] < baseKeys[cb.base]
		}
		return currKeys[ca.curr] < currKeys[cb.curr]
	})

	var pairs []recordMatch
	for _, c := range candidates {
		if baseUsed[c.base] || currUsed[c.curr] {
			continue
		}
		baseUsed[c.base] = true
		currUsed[c.curr] = true
		pairs = append(pairs, recordMatch{Baseline: c.base, Current: c.curr})
	}
	return pairs
}

// identityOf returns the first identity field carried by the record
func identityOf(rec types.Record) (string, string, bool) {
	for _, field := range IdentityFields {
		if value := identityValue(rec, field); value != "" {
			return field, value, true
		}
	}
	return "", "", false
}

func identityValue(rec types.Record, field string) string {
	v, ok := rec[field]
	if !ok || v == nil {
		return ""
	}
	switch val := normalize(v).(type) {
	case string:
		return val
	case float64:
		return types.FormatNumber(val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}

// conflictingIdentity reports whether both records carry the same identity
// field with different values, which rules out pairing them.
func conflictingIdentity(a, b types.Record) bool {
	field, value, ok := identityOf(a)
	if !ok {
		return false
	}
	other := identityValue(b, field)
	return other != "" && other != value
}

// similarity is the share of top-level fields holding equal values over the
// union of both records' fields.
func similarity(a, b types.Record) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 1
	}

	equal := 0
	for k := range union {
		av, aok := a[k]
		bv, bok := b[k]
		if aok && bok && canonicalKey(av) == canonicalKey(bv) {
			equal++
		}
	}
	return float64(equal) / float64(len(union))
}
