// Package knn classifies glyph feature vectors by majority vote of their
// nearest labeled neighbours in a reference set.
package knn

import (
	"errors"
	"fmt"
	"sort"

	"charvision/internal/refset"
)

var (
	// ErrEmptySet is returned when training on a set with no samples.
	ErrEmptySet = errors.New("reference set is empty")
	// ErrFeatureLength is returned for queries of the wrong length.
	ErrFeatureLength = errors.New("feature length mismatch")
	// ErrInvalidK is returned for k < 1.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown knn backend")
)

// Backend selects the neighbour search implementation.
type Backend string

const (
	// BackendBrute is an exact linear scan.
	BackendBrute Backend = "brute"
	// BackendHNSW is an approximate hierarchical graph index.
	BackendHNSW Backend = "hnsw"
)

// Neighbor is one reference sample returned by a search.
type Neighbor struct {
	Row      int
	Label    int32
	Distance float64 // Euclidean
}

// Index finds the k reference rows closest to a query.
type Index interface {
	Search(query []float32, k int) []Neighbor
	Len() int
}

// Result is the outcome of FindNearest.
type Result struct {
	Label     int32
	Votes     int
	Neighbors []Neighbor
}

// Rune returns the label as a character.
func (r Result) Rune() rune {
	return rune(r.Label)
}

// Options configures Train.
type Options struct {
	Backend Backend
	K       int
}

// Classifier is a trained KNN model.
type Classifier struct {
	index      Index
	featureLen int
	k          int
}

// Train builds a classifier over every sample in set.
func Train(set *refset.Set, opts Options) (*Classifier, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptySet
	}
	if opts.K == 0 {
		opts.K = 1
	}
	if opts.K < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, opts.K)
	}

	var idx Index
	switch opts.Backend {
	case "", BackendBrute:
		idx = newBruteIndex(set)
	case BackendHNSW:
		idx = newHNSWIndex(set)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}

	return &Classifier{index: idx, featureLen: set.FeatureLen(), k: opts.K}, nil
}

// K returns the default neighbour count.
func (c *Classifier) K() int { return c.k }

// Len returns the number of reference samples.
func (c *Classifier) Len() int { return c.index.Len() }

// Predict classifies feature with the default k.
func (c *Classifier) Predict(feature []float32) (Result, error) {
	return c.FindNearest(feature, c.k)
}

// FindNearest classifies feature by majority vote of its k nearest
// neighbours. A tie goes to the tied label whose closest member is nearest.
func (c *Classifier) FindNearest(feature []float32, k int) (Result, error) {
	if k < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(feature) != c.featureLen {
		return Result{}, fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(feature), c.featureLen)
	}

	neighbors := c.index.Search(feature, k)
	if len(neighbors) == 0 {
		return Result{}, ErrEmptySet
	}
	label, votes := vote(neighbors)
	return Result{Label: label, Votes: votes, Neighbors: neighbors}, nil
}

// vote expects neighbors sorted by ascending distance.
func vote(neighbors []Neighbor) (int32, int) {
	counts := make(map[int32]int)
	for _, n := range neighbors {
		counts[n.Label]++
	}
	best, bestCount := neighbors[0].Label, 0
	seen := make(map[int32]bool)
	for _, n := range neighbors {
		if seen[n.Label] {
			continue
		}
		seen[n.Label] = true
		if counts[n.Label] > bestCount {
			best, bestCount = n.Label, counts[n.Label]
		}
	}
	return best, bestCount
}

// sortNeighbors orders by distance, then by row for determinism.
func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Row < ns[j].Row
	})
}
