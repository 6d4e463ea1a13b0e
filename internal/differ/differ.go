// Package differ computes a structural, order-insensitive diff between two
// infrastructure snapshots.
package differ

import (
	"github.com/yairfalse/driftwatch/pkg/types"
)

// Result is the outcome of comparing a baseline snapshot with a current one
type Result struct {
	Environment       string             `json:"environment"`
	BaselineTimestamp string             `json:"baseline_timestamp"`
	CurrentTimestamp  string             `json:"current_timestamp"`
	DriftDetected     bool               `json:"drift_detected"`
	Changes           []types.Change     `json:"changes"`
	Categorized       types.DriftSummary `json:"categorized"`
}

// ChangesOfKind returns the changes of one kind, preserving order
func (r *Result) ChangesOfKind(kind types.ChangeKind) []types.Change {
	var out []types.Change
	for _, c := range r.Changes {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Counts returns the number of added, removed and changed entries
func (r *Result) Counts() (added, removed, changed int) {
	return len(r.Categorized.Added), len(r.Categorized.Removed), len(r.Categorized.Changed)
}

// Options tunes record pairing
type Options struct {
	// SimilarityThreshold is the minimum share of equal fields for records
	// without a shared identity to be paired as one resource.
	SimilarityThreshold float64
}

// Differ compares snapshots. The zero value is not usable; call New.
type Differ struct {
	matcher recordMatcher
}

// New creates a Differ with the given options
func New(opts Options) *Differ {
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Differ{matcher: recordMatcher{threshold: opts.SimilarityThreshold}}
}

// Compare diffs two snapshots with default options
func Compare(baseline, current *types.Snapshot) *Result {
	return New(Options{}).Compare(baseline, current)
}

// Compare diffs two snapshots category by category. Inputs are never mutated.
func (d *Differ) Compare(baseline, current *types.Snapshot) *Result {
	result := &Result{
		Changes: []types.Change{},
		Categorized: types.DriftSummary{
			Added:   []string{},
			Removed: []string{},
			Changed: []string{},
		},
	}

	var baseSet, currSet types.ResourceSet
	if baseline != nil {
		result.Environment = baseline.Environment
		result.BaselineTimestamp = baseline.Timestamp
		baseSet = baseline.Resources
	}
	if current != nil {
		if result.Environment == "" {
			result.Environment = current.Environment
		}
		result.CurrentTimestamp = current.Timestamp
		currSet = current.Resources
	}

	for _, cat := range categoriesOf(baseSet, currSet) {
		changes := d.compareCategory(cat, baseSet.Records(cat), currSet.Records(cat))
		for _, change := range changes {
			result.Changes = append(result.Changes, change)
			path := change.Path()
			switch change.Kind {
			case types.ChangeAdded:
				result.Categorized.Added = append(result.Categorized.Added, path)
			case types.ChangeRemoved:
				result.Categorized.Removed = append(result.Categorized.Removed, path)
			case types.ChangeChanged:
				result.Categorized.Changed = append(result.Categorized.Changed, path)
			}
		}
	}

	result.DriftDetected = len(result.Changes) > 0
	return result
}

func (d *Differ) compareCategory(cat types.Category, baseline, current []types.Record) []types.Change {
	if len(baseline) == 0 && len(current) == 0 {
		return nil
	}

	base := normalizeRecords(baseline)
	curr := normalizeRecords(current)
	match := d.matcher.Match(base, curr)

	pairedWith := make(map[int]int, len(match.Pairs))
	for _, p := range match.Pairs {
		pairedWith[p.Baseline] = p.Current
	}
	removed := make(map[int]bool, len(match.Removed))
	for _, i := range match.Removed {
		removed[i] = true
	}

	var changes []types.Change
	for i := range base {
		if j, ok := pairedWith[i]; ok {
			_, identity, _ := identityOf(base[i])
			for _, fc := range compareRecords(base[i], curr[j]) {
				changes = append(changes, types.Change{
					Category:  cat,
					Index:     i,
					Identity:  identity,
					Kind:      types.ChangeChanged,
					Field:     fc.Field,
					FieldPath: fc.Path,
					Before:    fc.Before,
					After:     fc.After,
				})
			}
			continue
		}
		if removed[i] {
			_, identity, _ := identityOf(base[i])
			changes = append(changes, types.Change{
				Category: cat,
				Index:    i,
				Identity: identity,
				Kind:     types.ChangeRemoved,
			})
		}
	}
	for _, j := range match.Added {
		_, identity, _ := identityOf(curr[j])
		changes = append(changes, types.Change{
			Category: cat,
			Index:    j,
			Identity: identity,
			Kind:     types.ChangeAdded,
		})
	}

	return changes
}

// normalizeRecords returns normalized copies, leaving the inputs untouched
func normalizeRecords(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, rec := range records {
		if m, ok := normalize(rec).(map[string]any); ok {
			out[i] = m
		} else {
			out[i] = types.Record{}
		}
	}
	return out
}

func categoriesOf(baseline, current types.ResourceSet) []types.Category {
	merged := make(types.ResourceSet, len(baseline)+len(current))
	for cat := range baseline {
		merged[cat] = nil
	}
	for cat := range current {
		merged[cat] = nil
	}
	return merged.OrderedCategories()
}
