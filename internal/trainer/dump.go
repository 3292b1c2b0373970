package trainer

import (
	"fmt"
	"os"
	"path/filepath"

	"charvision/internal/glyph"

	"github.com/disintegration/imaging"
)

// Dumper writes labeled glyphs to disk as upscaled PNGs so a training run
// can be audited.
type Dumper struct {
	Dir   string
	Scale int
	n     int
}

// NewDumper creates dir if needed.
func NewDumper(dir string, scale int) (*Dumper, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dump dir: %w", err)
	}
	if scale < 1 {
		scale = 1
	}
	return &Dumper{Dir: dir, Scale: scale}, nil
}

// Dump saves the resized glyph as <label>_<n>.png.
func (d *Dumper) Dump(g *glyph.Glyph, label rune) error {
	img, err := g.Resized.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert glyph: %w", err)
	}
	b := img.Bounds()
	scaled := imaging.Resize(img, b.Dx()*d.Scale, b.Dy()*d.Scale, imaging.NearestNeighbor)

	path := filepath.Join(d.Dir, fmt.Sprintf("%c_%04d.png", label, d.n))
	if err := imaging.Save(scaled, path); err != nil {
		return fmt.Errorf("failed to save glyph %s: %w", path, err)
	}
	d.n++
	return nil
}

// Count returns the number of glyphs written.
func (d *Dumper) Count() int { return d.n }
