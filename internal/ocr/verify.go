package ocr

import (
	"fmt"
	"image"
	"strings"
)

// Disagreement is a glyph where KNN and Tesseract read different characters.
type Disagreement struct {
	Index  int
	Bounds image.Rectangle
	KNN    rune
	OCR    rune // 0 when Tesseract read nothing
}

func (d Disagreement) String() string {
	ocr := "?"
	if d.OCR != 0 {
		ocr = string(d.OCR)
	}
	return fmt.Sprintf("#%d at (%d,%d): knn=%c ocr=%s", d.Index, d.Bounds.Min.X, d.Bounds.Min.Y, d.KNN, ocr)
}

// Check is one glyph to compare.
type Check struct {
	Bounds image.Rectangle
	KNN    rune
	OCR    rune
}

// Compare returns the checks whose readings differ, ignoring letter case.
// Letters commonly confused with digits (O/0, I/1) are treated as equal.
func Compare(checks []Check) []Disagreement {
	var out []Disagreement
	for i, c := range checks {
		if equivalent(c.KNN, c.OCR) {
			continue
		}
		out = append(out, Disagreement{Index: i, Bounds: c.Bounds, KNN: c.KNN, OCR: c.OCR})
	}
	return out
}

// Report formats disagreements one per line.
func Report(ds []Disagreement) string {
	if len(ds) == 0 {
		return "ocr agrees"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ocr disagrees on %d glyph(s):", len(ds)))
	for _, d := range ds {
		sb.WriteString("\n  ")
		sb.WriteString(d.String())
	}
	return sb.String()
}

var confusable = map[rune]rune{'O': '0', 'I': '1'}

func equivalent(a, b rune) bool {
	a, b = upper(a), upper(b)
	if a == b {
		return true
	}
	if c, ok := confusable[a]; ok && c == b {
		return true
	}
	if c, ok := confusable[b]; ok && c == a {
		return true
	}
	return false
}

func upper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
