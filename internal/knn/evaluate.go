package knn

import (
	"fmt"
	"sort"

	"charvision/internal/refset"
)

// Miss is one held-out sample that was classified wrongly.
type Miss struct {
	Row       int
	Label     int32
	Predicted int32
}

// Evaluation summarises a leave-one-out run.
type Evaluation struct {
	Total   int
	Correct int
	Misses  []Miss
}

// Accuracy returns the fraction of correctly classified samples.
func (e Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// ErrorsByLabel counts misses per true label, sorted by count then label.
func (e Evaluation) ErrorsByLabel() []refset.LabelCount {
	counts := make(map[int32]int)
	for _, m := range e.Misses {
		counts[m.Label]++
	}
	out := make([]refset.LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, refset.LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// LeaveOneOut classifies each sample against the rest of the set. progress,
// if non-nil, is called once per sample.
func LeaveOneOut(set *refset.Set, opts Options, progress func()) (Evaluation, error) {
	if set.Len() < 2 {
		return Evaluation{}, fmt.Errorf("%w: need at least 2 samples, got %d", ErrEmptySet, set.Len())
	}

	k := opts.K
	if k == 0 {
		k = 1
	}

	var ev Evaluation
	for i := 0; i < set.Len(); i++ {
		clf, err := Train(set.Without(i), opts)
		if err != nil {
			return Evaluation{}, err
		}
		res, err := clf.FindNearest(set.Row32(i), k)
		if err != nil {
			return Evaluation{}, err
		}

		ev.Total++
		if res.Label == set.Label(i) {
			ev.Correct++
		} else {
			ev.Misses = append(ev.Misses, Miss{Row: i, Label: set.Label(i), Predicted: res.Label})
		}
		if progress != nil {
			progress()
		}
	}
	return ev, nil
}
