// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
	"sort"
)

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromImageRect converts an image.Rectangle to RectInt.
func FromImageRect(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ToImage converts to image.Rectangle.
func (r RectInt) ToImage() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether r has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Offset returns the rectangle translated by p.
func (r RectInt) Offset(p image.Point) RectInt {
	return RectInt{X: r.X + p.X, Y: r.Y + p.Y, Width: r.Width, Height: r.Height}
}

// Clamp returns the part of r that lies inside bounds.
func (r RectInt) Clamp(bounds image.Rectangle) RectInt {
	return FromImageRect(r.ToImage().Intersect(bounds))
}

// Circle is an integer circle, as drawn by OpenCV.
type Circle struct {
	Center image.Point `json:"center"`
	Radius int         `json:"radius"`
}

// InscribedCircle returns the circle centered in inner, with inner positioned
// relative to the origin of outer. The radius is a quarter of width+height
// rounded half to even, matching cvRound.
func InscribedCircle(outer, inner image.Rectangle) Circle {
	cx := outer.Min.X + inner.Min.X + inner.Dx()/2
	cy := outer.Min.Y + inner.Min.Y + inner.Dy()/2
	r := int(math.RoundToEven(float64(inner.Dx()+inner.Dy()) * 0.25))
	return Circle{Center: image.Pt(cx, cy), Radius: r}
}

// SortReadingOrder sorts rectangles top-to-bottom by line and left-to-right
// within a line. Two rectangles share a line when their vertical centers are
// closer than half the taller one's height. The returned slice holds the
// input indices in reading order.
func SortReadingOrder(rects []image.Rectangle) []int {
	idx := make([]int, len(rects))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rects[idx[a]].Min.Y < rects[idx[b]].Min.Y
	})

	var lines [][]int
	for _, i := range idx {
		placed := false
		for li, line := range lines {
			ref := rects[line[0]]
			if sameLine(ref, rects[i]) {
				lines[li] = append(lines[li], i)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []int{i})
		}
	}

	out := make([]int, 0, len(rects))
	for _, line := range lines {
		sort.SliceStable(line, func(a, b int) bool {
			return rects[line[a]].Min.X < rects[line[b]].Min.X
		})
		out = append(out, line...)
	}
	return out
}

func sameLine(a, b image.Rectangle) bool {
	ca := float64(a.Min.Y+a.Max.Y) / 2
	cb := float64(b.Min.Y+b.Max.Y) / 2
	h := math.Max(float64(a.Dy()), float64(b.Dy()))
	return math.Abs(ca-cb) < h/2
}
