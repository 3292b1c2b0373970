package knn

import (
	"charvision/internal/refset"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// bruteIndex scans every reference row. It is exact and is what OpenCV's
// KNearest does by default.
type bruteIndex struct {
	features *mat.Dense
	labels   []int32
}

func newBruteIndex(set *refset.Set) *bruteIndex {
	return &bruteIndex{features: set.Features(), labels: set.Labels()}
}

func (b *bruteIndex) Len() int { return len(b.labels) }

func (b *bruteIndex) Search(query []float32, k int) []Neighbor {
	q := make([]float64, len(query))
	for i, v := range query {
		q[i] = float64(v)
	}

	rows, _ := b.features.Dims()
	all := make([]Neighbor, rows)
	for i := 0; i < rows; i++ {
		all[i] = Neighbor{
			Row:      i,
			Label:    b.labels[i],
			Distance: floats.Distance(b.features.RawRowView(i), q, 2),
		}
	}
	sortNeighbors(all)
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}
