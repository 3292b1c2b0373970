// Package trainer runs an interactive labeling session over a glyph sheet
// and collects the labeled features into a reference set.
package trainer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"charvision/internal/glyph"
	"charvision/internal/keys"
	"charvision/internal/refset"

	"gocv.io/x/gocv"
)

// ErrAborted is returned when the operator presses Escape. Nothing collected
// in the session should be saved.
var ErrAborted = errors.New("training aborted")

// Labeler asks for the label of one glyph. sheet is the annotated training
// image. Returning io.EOF ends the session normally.
type Labeler interface {
	Label(sheet *gocv.Mat, g *glyph.Glyph) (keys.Key, error)
}

// Summary counts the outcome of a session.
type Summary struct {
	Candidates int
	Labeled    int
	Skipped    int
	PerLabel   map[rune]int
}

func (s Summary) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d candidates, %d labeled, %d skipped\n", s.Candidates, s.Labeled, s.Skipped))

	labels := make([]rune, 0, len(s.PerLabel))
	for r := range s.PerLabel {
		labels = append(labels, r)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, r := range labels {
		sb.WriteString(fmt.Sprintf("  %c: %d\n", r, s.PerLabel[r]))
	}
	return sb.String()
}

// Trainer labels the glyphs of a sheet.
type Trainer struct {
	Params  glyph.Params
	Charset string
	Labeler Labeler
	Dumper  *Dumper // optional
	Out     io.Writer
}

// Train segments sheet, asks the labeler for each glyph in contour order and
// appends accepted labels to a copy of base (or a new set if base is nil).
// sheet itself is not modified.
func (t *Trainer) Train(sheet gocv.Mat, base *refset.Set) (*refset.Set, Summary, error) {
	seg, err := glyph.Segment(sheet, t.Params)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to segment training image: %w", err)
	}
	defer seg.Close()

	set := refset.New(t.Params.Width, t.Params.Height)
	if base != nil {
		if err := set.Merge(base); err != nil {
			return nil, Summary{}, err
		}
	}

	annotated := sheet.Clone()
	defer annotated.Close()

	sum, err := Run(seg.Glyphs, &annotated, t.Labeler, set, t.Charset, t.Dumper)
	if err != nil {
		return nil, sum, err
	}
	if t.Out != nil {
		fmt.Fprintln(t.Out, "training complete")
	}
	return set, sum, nil
}

// Run labels each glyph in order and appends accepted ones to set. Escape
// returns ErrAborted; keys outside charset skip the glyph.
func Run(glyphs []glyph.Glyph, sheet *gocv.Mat, labeler Labeler, set *refset.Set, charset string, dumper *Dumper) (Summary, error) {
	sum := Summary{Candidates: len(glyphs), PerLabel: make(map[rune]int)}

	for i := range glyphs {
		g := &glyphs[i]
		k, err := labeler.Label(sheet, g)
		if errors.Is(err, io.EOF) {
			sum.Skipped += len(glyphs) - i
			break
		}
		if err != nil {
			return sum, err
		}
		if k == keys.Escape {
			return sum, ErrAborted
		}

		label, ok := Accept(k, charset)
		if !ok {
			sum.Skipped++
			continue
		}
		if err := set.Append(int32(label), g.Feature); err != nil {
			return sum, err
		}
		if dumper != nil {
			if err := dumper.Dump(g, label); err != nil {
				return sum, err
			}
		}
		sum.Labeled++
		sum.PerLabel[label]++
	}
	return sum, nil
}

// Accept normalises k to upper case and reports whether it is in charset.
func Accept(k keys.Key, charset string) (rune, bool) {
	r, ok := k.Rune()
	if !ok {
		return 0, false
	}
	r = unicode.ToUpper(r)
	if !strings.ContainsRune(charset, r) {
		return 0, false
	}
	return r, true
}
