package trainer

import (
	"image/color"
	"io"

	"charvision/internal/capture"
	"charvision/internal/glyph"
	"charvision/internal/keys"

	"gocv.io/x/gocv"
)

// WindowLabeler outlines each glyph on the sheet, shows it and waits for a
// key. A wait that ends without a key yields keys.None, which Run skips.
type WindowLabeler struct {
	Display   capture.Display
	Color     color.RGBA
	Thickness int
}

func (w *WindowLabeler) Label(sheet *gocv.Mat, g *glyph.Glyph) (keys.Key, error) {
	thickness := w.Thickness
	if thickness == 0 {
		thickness = 2
	}
	gocv.Rectangle(sheet, g.Bounds, w.Color, thickness)

	w.Display.Show(capture.WindowGlyph, g.ROI)
	w.Display.Show(capture.WindowGlyphSized, g.Resized)
	w.Display.Show(capture.WindowSheet, *sheet)

	return w.Display.WaitKey(0), nil
}

// SequenceLabeler takes labels from a string, one rune per glyph in contour
// order. '?' and ' ' skip a glyph. It returns io.EOF once the string is used
// up.
type SequenceLabeler struct {
	labels []rune
	pos    int
}

// NewSequenceLabeler returns a labeler that replays labels.
func NewSequenceLabeler(labels string) *SequenceLabeler {
	return &SequenceLabeler{labels: []rune(labels)}
}

func (s *SequenceLabeler) Label(*gocv.Mat, *glyph.Glyph) (keys.Key, error) {
	if s.pos >= len(s.labels) {
		return keys.None, io.EOF
	}
	r := s.labels[s.pos]
	s.pos++
	if r == '?' {
		return keys.None, nil
	}
	return keys.Of(r), nil
}

// Remaining returns the number of unused labels.
func (s *SequenceLabeler) Remaining() int {
	return len(s.labels) - s.pos
}
