// Package matcher reads characters from frames with a trained KNN classifier.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"strings"

	"charvision/internal/capture"
	"charvision/internal/glyph"
	"charvision/internal/keys"
	"charvision/internal/knn"
	"charvision/internal/ocr"

	"gocv.io/x/gocv"
)

// GlyphReader recognises a single thresholded glyph. *ocr.Engine implements it.
type GlyphReader interface {
	RecognizeGlyph(roi gocv.Mat) (rune, error)
}

// Char is one classified glyph.
type Char struct {
	Rune     rune
	Bounds   image.Rectangle
	Distance float64
	OCR      rune // 0 unless an OCR reader is configured
}

// Reading is the result of classifying every glyph in a frame.
type Reading struct {
	Text          string
	Chars         []Char
	Disagreements []ocr.Disagreement
}

// Matcher segments frames and classifies each glyph.
type Matcher struct {
	Params     glyph.Params
	Classifier *knn.Classifier
	K          int
	BoxColor   color.RGBA
	OCR        GlyphReader // optional
}

// Read classifies every glyph in frame and returns them in reading order.
// If display is non-nil the thresholded ROI of each glyph is shown.
func (m *Matcher) Read(frame gocv.Mat, display capture.Display) (Reading, error) {
	seg, err := glyph.Segment(frame, m.Params)
	if err != nil {
		return Reading{}, err
	}
	defer seg.Close()

	k := m.K
	if k < 1 {
		k = 1
	}

	var r Reading
	var sb strings.Builder
	var checks []ocr.Check
	for _, g := range seg.ReadingOrder() {
		res, err := m.Classifier.FindNearest(g.Feature, k)
		if err != nil {
			return Reading{}, fmt.Errorf("failed to classify glyph at %v: %w", g.Bounds.Min, err)
		}
		c := Char{Rune: res.Rune(), Bounds: g.Bounds, Distance: res.Neighbors[0].Distance}

		if m.OCR != nil {
			c.OCR, err = m.OCR.RecognizeGlyph(g.ROI)
			if err != nil {
				return Reading{}, err
			}
			checks = append(checks, ocr.Check{Bounds: g.Bounds, KNN: c.Rune, OCR: c.OCR})
		}
		if display != nil {
			display.Show(capture.WindowROI, g.ROI)
		}

		sb.WriteRune(c.Rune)
		r.Chars = append(r.Chars, c)
	}
	r.Text = sb.String()
	if m.OCR != nil {
		r.Disagreements = ocr.Compare(checks)
	}
	return r, nil
}

// Annotate draws a box around each character of r on frame.
func (m *Matcher) Annotate(frame *gocv.Mat, r Reading) {
	for _, c := range r.Chars {
		gocv.Rectangle(frame, c.Bounds, m.BoxColor, 2)
	}
}

// Report writes the reading in the operator-facing format.
func Report(w io.Writer, r Reading, withOCR bool) {
	fmt.Fprintf(w, "numbers read = %s\n", r.Text)
	if withOCR {
		fmt.Fprintln(w, ocr.Report(r.Disagreements))
	}
}

// Loop is the live capture loop.
type Loop struct {
	Matcher    *Matcher
	Source     capture.Source
	Display    capture.Display
	CaptureKey rune
	Out        io.Writer
}

// Run shows frames until Escape, cancellation or an empty frame; the last
// is logged and ends the loop without error. Pressing the capture key reads
// the current frame.
func (l *Loop) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := l.Source.Read(&frame); err != nil {
			if errors.Is(err, capture.ErrEmptyFrame) {
				log.Printf("%v", err)
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		l.Display.Show(capture.WindowFrame, frame)
		k := l.Display.WaitKey(1)
		switch {
		case !k.Pressed():
			continue
		case k == keys.Escape:
			return nil
		case k.Is(l.CaptureKey):
			r, err := l.Matcher.Read(frame, l.Display)
			if err != nil {
				return err
			}
			l.Matcher.Annotate(&frame, r)
			l.Display.Show(capture.WindowFrame, frame)
			Report(l.Out, r, l.Matcher.OCR != nil)
		}
	}
}
