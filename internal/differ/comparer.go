package differ

import (
	"fmt"
	"sort"
)

// fieldChange is one differing leaf inside a paired record
type fieldChange struct {
	Path   string
	Field  string
	Before any
	After  any
}

// compareRecords walks two paired records and returns one entry per differing
// leaf, in sorted key order.
func compareRecords(baseline, current map[string]any) []fieldChange {
	var changes []fieldChange
	compareMaps("", baseline, current, &changes)
	return changes
}

func compareMaps(prefix string, baseline, current map[string]any, out *[]fieldChange) {
	keys := make([]string, 0, len(baseline)+len(current))
	seen := make(map[string]struct{}, len(baseline)+len(current))
	for k := range baseline {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range current {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		before, inBase := baseline[key]
		after, inCurr := current[key]
		path := joinField(prefix, key)
		if !inBase || !inCurr {
			*out = append(*out, fieldChange{Path: path, Field: key, Before: before, After: after})
			continue
		}
		compareValues(path, key, before, after, out)
	}
}

// compareValues recurses into nested maps and equal-length slices; anything
// else that differs is reported at the current path.
func compareValues(path, field string, before, after any, out *[]fieldChange) {
	if canonicalKey(before) == canonicalKey(after) {
		return
	}

	switch b := before.(type) {
	case map[string]any:
		if a, ok := after.(map[string]any); ok {
			compareMaps(path, b, a, out)
			return
		}
	case []any:
		if a, ok := after.([]any); ok && len(a) == len(b) {
			compareSlices(path, field, b, a, out)
			return
		}
	}

	*out = append(*out, fieldChange{Path: path, Field: field, Before: before, After: after})
}

// compareSlices matches elements by content first, then pairs leftovers by
// position. Reported indices refer to the baseline slice.
func compareSlices(path, field string, baseline, current []any, out *[]fieldChange) {
	available := make(map[string][]int)
	for j, item := range current {
		key := canonicalKey(item)
		available[key] = append(available[key], j)
	}

	var leftBase []int
	for i, item := range baseline {
		key := canonicalKey(item)
		if queue := available[key]; len(queue) > 0 {
			available[key] = queue[1:]
			continue
		}
		leftBase = append(leftBase, i)
	}

	var leftCurr []int
	for _, queue := range available {
		leftCurr = append(leftCurr, queue...)
	}
	sort.Ints(leftCurr)

	for n, i := range leftBase {
		j := leftCurr[n]
		compareValues(fmt.Sprintf("%s[%d]", path, i), field, baseline[i], current[j], out)
	}
}

func joinField(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
