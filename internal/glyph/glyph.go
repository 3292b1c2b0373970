// Package glyph isolates individual characters in an image and turns each
// one into a fixed-length feature vector for KNN classification.
//
// The pipeline is grayscale, Gaussian blur, inverted adaptive Gaussian
// threshold (foreground white), external contours, minimum-area filter,
// bounding-rect ROI, resize to Width x Height, row-major flatten.
package glyph

import (
	"fmt"
	"image"

	"charvision/internal/config"
	"charvision/pkg/geometry"

	"gocv.io/x/gocv"
)

// Params controls segmentation and feature extraction.
type Params struct {
	MinContourArea float64
	Width          int
	Height         int
	BlurSize       int
	BlockSize      int
	C              float32
}

// DefaultParams returns the values the reference sets are trained with.
func DefaultParams() Params {
	return Params{
		MinContourArea: 100,
		Width:          20,
		Height:         30,
		BlurSize:       5,
		BlockSize:      11,
		C:              2,
	}
}

// ParamsFromConfig converts the glyph section of the configuration.
func ParamsFromConfig(c config.GlyphConfig) Params {
	return Params{
		MinContourArea: c.MinContourArea,
		Width:          c.Width,
		Height:         c.Height,
		BlurSize:       c.BlurSize,
		BlockSize:      c.BlockSize,
		C:              float32(c.C),
	}
}

// FeatureLen is the length of a flattened feature vector.
func (p Params) FeatureLen() int {
	return p.Width * p.Height
}

// Glyph is one segmented character candidate.
type Glyph struct {
	Bounds  image.Rectangle
	Area    float64
	Feature []float32

	// ROI is a view into the owning Segmentation's threshold image and
	// Resized is owned by the Segmentation. Both are released by
	// Segmentation.Close.
	ROI     gocv.Mat
	Resized gocv.Mat
}

// Segmentation holds the threshold image and the glyphs found in it.
type Segmentation struct {
	Thresh gocv.Mat
	Glyphs []Glyph
}

// Close releases every Mat held by the segmentation.
func (s *Segmentation) Close() error {
	for i := range s.Glyphs {
		s.Glyphs[i].ROI.Close()
		s.Glyphs[i].Resized.Close()
	}
	s.Glyphs = nil
	return s.Thresh.Close()
}

// ReadingOrder returns the glyphs sorted top-to-bottom, left-to-right.
func (s *Segmentation) ReadingOrder() []*Glyph {
	rects := make([]image.Rectangle, len(s.Glyphs))
	for i, g := range s.Glyphs {
		rects[i] = g.Bounds
	}
	order := geometry.SortReadingOrder(rects)
	out := make([]*Glyph, len(order))
	for i, idx := range order {
		out[i] = &s.Glyphs[idx]
	}
	return out
}

// Threshold converts a BGR (or already gray) image into the binary image the
// contours are taken from. The caller owns the returned Mat.
func Threshold(src gocv.Mat, p Params) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() == 1 {
		src.CopyTo(&gray)
	} else {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(p.BlurSize, p.BlurSize), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	gocv.AdaptiveThreshold(blurred, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, p.BlockSize, p.C)
	return thresh, nil
}

// Segment finds the character candidates in src. Contour order from
// findContours is preserved. The caller must Close the result.
func Segment(src gocv.Mat, p Params) (*Segmentation, error) {
	thresh, err := Threshold(src, p)
	if err != nil {
		return nil, err
	}

	// findContours may modify its input on older OpenCV builds.
	work := thresh.Clone()
	contours := gocv.FindContours(work, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	work.Close()
	defer contours.Close()

	seg := &Segmentation{Thresh: thresh}
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if !KeepContour(area, p.MinContourArea) {
			continue
		}

		rect := gocv.BoundingRect(contour)
		roi := thresh.Region(rect)
		resized := gocv.NewMat()
		gocv.Resize(roi, &resized, image.Pt(p.Width, p.Height), 0, 0, gocv.InterpolationLinear)

		feature, err := Flatten(resized)
		if err != nil {
			roi.Close()
			resized.Close()
			seg.Close()
			return nil, err
		}

		seg.Glyphs = append(seg.Glyphs, Glyph{
			Bounds:  rect,
			Area:    area,
			Feature: feature,
			ROI:     roi,
			Resized: resized,
		})
	}

	return seg, nil
}

// KeepContour reports whether a contour is large enough to be a character.
// The comparison is strict: a contour of exactly minArea is noise.
func KeepContour(area, minArea float64) bool {
	return area > minArea
}

// Flatten turns a single-channel 8-bit image into a row-major float32 row.
func Flatten(m gocv.Mat) ([]float32, error) {
	if m.Channels() != 1 {
		return nil, fmt.Errorf("expected single-channel image, got %d channels", m.Channels())
	}
	pix := m.ToBytes()
	if len(pix) != m.Rows()*m.Cols() {
		return nil, fmt.Errorf("unexpected pixel buffer size %d for %dx%d", len(pix), m.Cols(), m.Rows())
	}
	return FeatureFromPixels(pix), nil
}

// FeatureFromPixels converts 8-bit intensities into a float32 feature row.
func FeatureFromPixels(pix []byte) []float32 {
	out := make([]float32, len(pix))
	for i, v := range pix {
		out[i] = float32(v)
	}
	return out
}
