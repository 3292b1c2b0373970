package knn

import (
	"charvision/internal/refset"

	"github.com/coder/hnsw"
	"gonum.org/v1/gonum/floats"
)

// hnswMaxNeighbors is the graph degree. Reference sets are small, so a
// generous value keeps recall close to exact search.
const hnswMaxNeighbors = 32

// hnswIndex trades exactness for sub-linear search on large sets.
type hnswIndex struct {
	graph  *hnsw.Graph[int]
	labels []int32
	rows   [][]float64
}

func newHNSWIndex(set *refset.Set) *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.EfSearch = 4 * hnswMaxNeighbors
	g.Distance = hnsw.EuclideanDistance

	idx := &hnswIndex{graph: g, labels: set.Labels(), rows: make([][]float64, set.Len())}
	for i := 0; i < set.Len(); i++ {
		idx.rows[i] = set.Row(i)
		g.Add(hnsw.MakeNode(i, set.Row32(i)))
	}
	return idx
}

func (h *hnswIndex) Len() int { return len(h.labels) }

func (h *hnswIndex) Search(query []float32, k int) []Neighbor {
	q := make([]float64, len(query))
	for i, v := range query {
		q[i] = float64(v)
	}

	nodes := h.graph.Search(query, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Neighbor{
			Row:      n.Key,
			Label:    h.labels[n.Key],
			Distance: floats.Distance(h.rows[n.Key], q, 2),
		})
	}
	sortNeighbors(out)
	return out
}
