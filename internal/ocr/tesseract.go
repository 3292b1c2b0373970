// Package ocr cross-checks KNN character labels with Tesseract.
package ocr

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Alphanumeric is the whitelist used for single glyphs.
const Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// minGlyphHeight is the height glyphs are upscaled to before recognition.
const minGlyphHeight = 48

// Engine wraps a Tesseract client configured for isolated characters.
type Engine struct {
	client    *gosseract.Client
	whitelist string
}

// NewEngine creates a Tesseract client. whitelist restricts the characters
// Tesseract may return; empty means Alphanumeric.
func NewEngine(whitelist string) (*Engine, error) {
	if whitelist == "" {
		whitelist = Alphanumeric
	}
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Glyphs are not dictionary words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}

	return &Engine{client: client, whitelist: whitelist}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// RecognizeGlyph reads one character from a thresholded glyph (white
// foreground on black). It returns 0 if Tesseract finds nothing.
func (e *Engine) RecognizeGlyph(roi gocv.Mat) (rune, error) {
	if roi.Empty() {
		return 0, fmt.Errorf("empty glyph")
	}

	prepared := prepareGlyph(roi)
	defer prepared.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, prepared)
	if err != nil {
		return 0, fmt.Errorf("failed to encode glyph: %w", err)
	}
	defer buf.Close()

	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return 0, fmt.Errorf("failed to set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return 0, fmt.Errorf("OCR failed: %w", err)
	}

	text = strings.ToUpper(strings.TrimSpace(text))
	for _, r := range text {
		if strings.ContainsRune(e.whitelist, r) {
			return r, nil
		}
	}
	return 0, nil
}

// prepareGlyph upscales, inverts to dark-on-light and pads the glyph so
// Tesseract sees a margin around the character.
func prepareGlyph(roi gocv.Mat) gocv.Mat {
	scaled := gocv.NewMat()
	if h := roi.Rows(); h < minGlyphHeight {
		scale := float64(minGlyphHeight) / float64(h)
		gocv.Resize(roi, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		roi.CopyTo(&scaled)
	}
	defer scaled.Close()

	inverted := gocv.NewMat()
	gocv.BitwiseNot(scaled, &inverted)
	defer inverted.Close()

	pad := scaled.Rows() / 4
	padded := gocv.NewMat()
	gocv.CopyMakeBorder(inverted, &padded, pad, pad, pad, pad, gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return padded
}
