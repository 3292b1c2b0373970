// Package refset holds the KNN reference set: one character label and one
// flattened glyph feature row per sample.
package refset

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrFeatureLength is returned when a feature row has the wrong width.
	ErrFeatureLength = errors.New("feature length mismatch")
	// ErrShapeMismatch is returned when labels and features disagree on the sample count.
	ErrShapeMismatch = errors.New("label and feature counts differ")
)

// Set is an append-only reference set.
type Set struct {
	width, height int
	labels        []int32
	data          []float64 // row-major, len(labels) * FeatureLen
}

// New creates an empty set for glyphs of the given size.
func New(width, height int) *Set {
	return &Set{width: width, height: height}
}

// FromMatrices builds a set from a label column and a feature matrix.
func FromMatrices(labels []int32, features *mat.Dense, width, height int) (*Set, error) {
	rows, cols := 0, 0
	if features != nil {
		rows, cols = features.Dims()
	}
	if len(labels) != rows {
		return nil, fmt.Errorf("%w: %d labels, %d feature rows", ErrShapeMismatch, len(labels), rows)
	}
	if rows > 0 && cols != width*height {
		return nil, fmt.Errorf("%w: %d columns, want %dx%d=%d", ErrFeatureLength, cols, width, height, width*height)
	}

	s := New(width, height)
	s.labels = append(s.labels, labels...)
	s.data = make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		s.data = append(s.data, mat.Row(nil, i, features)...)
	}
	return s, nil
}

// Width returns the glyph width features were resized to.
func (s *Set) Width() int { return s.width }

// Height returns the glyph height features were resized to.
func (s *Set) Height() int { return s.height }

// FeatureLen returns the number of values per sample.
func (s *Set) FeatureLen() int { return s.width * s.height }

// Len returns the number of samples.
func (s *Set) Len() int { return len(s.labels) }

// Append adds one labeled sample.
func (s *Set) Append(label int32, feature []float32) error {
	if len(feature) != s.FeatureLen() {
		return fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(feature), s.FeatureLen())
	}
	s.labels = append(s.labels, label)
	for _, v := range feature {
		s.data = append(s.data, float64(v))
	}
	return nil
}

// Merge appends every sample of other.
func (s *Set) Merge(other *Set) error {
	if other.FeatureLen() != s.FeatureLen() {
		return fmt.Errorf("%w: merging %d into %d", ErrFeatureLength, other.FeatureLen(), s.FeatureLen())
	}
	s.labels = append(s.labels, other.labels...)
	s.data = append(s.data, other.data...)
	return nil
}

// Label returns the label of sample i.
func (s *Set) Label(i int) int32 { return s.labels[i] }

// Labels returns a copy of all labels.
func (s *Set) Labels() []int32 {
	out := make([]int32, len(s.labels))
	copy(out, s.labels)
	return out
}

// Row returns a view of sample i's feature row. Callers must not modify it.
func (s *Set) Row(i int) []float64 {
	n := s.FeatureLen()
	return s.data[i*n : (i+1)*n : (i+1)*n]
}

// Row32 returns a float32 copy of sample i's feature row.
func (s *Set) Row32(i int) []float32 {
	row := s.Row(i)
	out := make([]float32, len(row))
	for j, v := range row {
		out[j] = float32(v)
	}
	return out
}

// Features returns the feature matrix, one row per sample. The matrix shares
// storage with the set. It returns nil for an empty set.
func (s *Set) Features() *mat.Dense {
	if s.Len() == 0 {
		return nil
	}
	return mat.NewDense(s.Len(), s.FeatureLen(), s.data)
}

// Without returns a copy of the set with sample i removed.
func (s *Set) Without(i int) *Set {
	n := s.FeatureLen()
	out := New(s.width, s.height)
	out.labels = make([]int32, 0, s.Len()-1)
	out.labels = append(out.labels, s.labels[:i]...)
	out.labels = append(out.labels, s.labels[i+1:]...)
	out.data = make([]float64, 0, (s.Len()-1)*n)
	out.data = append(out.data, s.data[:i*n]...)
	out.data = append(out.data, s.data[(i+1)*n:]...)
	return out
}

// LabelCount is the number of samples for one label.
type LabelCount struct {
	Label int32
	Count int
}

// Histogram returns per-label sample counts sorted by label.
func (s *Set) Histogram() []LabelCount {
	counts := make(map[int32]int)
	for _, l := range s.labels {
		counts[l]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
