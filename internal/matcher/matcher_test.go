package matcher

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"

	"charvision/internal/capture"
	"charvision/internal/glyph"
	"charvision/internal/keys"
	"charvision/internal/knn"
	"charvision/internal/refset"

	"gocv.io/x/gocv"
)

var (
	tall = image.Pt(20, 30)
	wide = image.Pt(44, 16)
)

// drawBoxes draws solid black boxes of the given sizes left to right.
func drawBoxes(t *testing.T, sizes ...image.Point) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 60*len(sizes)+40, gocv.MatTypeCV8UC3)
	x := 20
	for _, s := range sizes {
		gocv.Rectangle(&img, image.Rect(x, 30, x+s.X, 30+s.Y), color.RGBA{A: 255}, -1)
		x += 60
	}
	return img
}

// trainShapes labels tall boxes 'T' and wide boxes 'W'.
func trainShapes(t *testing.T) *knn.Classifier {
	t.Helper()
	sheet := drawBoxes(t, tall, wide)
	defer sheet.Close()

	p := glyph.DefaultParams()
	seg, err := glyph.Segment(sheet, p)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	set := refset.New(p.Width, p.Height)
	for _, g := range seg.Glyphs {
		label := int32('T')
		if g.Bounds.Dx() > g.Bounds.Dy() {
			label = 'W'
		}
		if err := set.Append(label, g.Feature); err != nil {
			t.Fatal(err)
		}
	}
	clf, err := knn.Train(set, knn.Options{K: 1})
	if err != nil {
		t.Fatal(err)
	}
	return clf
}

type fixedReader rune

func (f fixedReader) RecognizeGlyph(gocv.Mat) (rune, error) { return rune(f), nil }

func TestRead(t *testing.T) {
	m := &Matcher{Params: glyph.DefaultParams(), Classifier: trainShapes(t), K: 1}
	frame := drawBoxes(t, tall, wide, tall)
	defer frame.Close()

	script := capture.NewScript()
	r, err := m.Read(frame, script)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Text != "TWT" {
		t.Errorf("Text = %q, want TWT", r.Text)
	}
	if len(r.Chars) != 3 || r.Chars[0].Bounds.Min.X > r.Chars[1].Bounds.Min.X {
		t.Errorf("chars not in reading order: %+v", r.Chars)
	}
	if script.Shown[capture.WindowROI] != 3 {
		t.Errorf("ROI shown %d times", script.Shown[capture.WindowROI])
	}
	if r.Disagreements != nil {
		t.Errorf("Disagreements without OCR = %v", r.Disagreements)
	}
}

func TestReadWithOCR(t *testing.T) {
	m := &Matcher{Params: glyph.DefaultParams(), Classifier: trainShapes(t), OCR: fixedReader('T')}
	frame := drawBoxes(t, wide, tall)
	defer frame.Close()

	r, err := m.Read(frame, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(r.Disagreements) != 1 || r.Disagreements[0].KNN != 'W' {
		t.Errorf("Disagreements = %v", r.Disagreements)
	}

	var sb strings.Builder
	Report(&sb, r, true)
	if !strings.Contains(sb.String(), "numbers read = WT") || !strings.Contains(sb.String(), "knn=W ocr=T") {
		t.Errorf("Report = %q", sb.String())
	}
}

func TestReadBlankFrame(t *testing.T) {
	m := &Matcher{Params: glyph.DefaultParams(), Classifier: trainShapes(t)}
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 50, 50, gocv.MatTypeCV8UC3)
	defer frame.Close()

	r, err := m.Read(frame, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Text != "" || len(r.Chars) != 0 {
		t.Errorf("Reading = %+v", r)
	}
}

// frames is a Source that replays one image n times.
type frames struct {
	img gocv.Mat
	n   int
}

func (f *frames) Read(dst *gocv.Mat) error {
	if f.n == 0 {
		return capture.ErrEmptyFrame
	}
	f.n--
	f.img.CopyTo(dst)
	return nil
}

func (f *frames) Close() error { return nil }

func TestLoop(t *testing.T) {
	img := drawBoxes(t, wide, tall)
	defer img.Close()

	tests := []struct {
		name    string
		frames  int
		keys    []keys.Key
		want    string
		reports int
	}{
		{"capture then escape", 5, []keys.Key{keys.None, keys.Of('C'), keys.Escape}, "numbers read = WT", 1},
		{"lowercase capture", 5, []keys.Key{keys.Of('c'), keys.Of('x'), keys.Escape}, "numbers read = WT", 1},
		{"frames run out", 2, []keys.Key{keys.None, keys.None}, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			l := &Loop{
				Matcher:    &Matcher{Params: glyph.DefaultParams(), Classifier: trainShapes(t)},
				Source:     &frames{img: img, n: tt.frames},
				Display:    capture.NewScript(tt.keys...),
				CaptureKey: 'c',
				Out:        &out,
			}
			if err := l.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := strings.Count(out.String(), "numbers read"); got != tt.reports {
				t.Errorf("%d reports, want %d: %q", got, tt.reports, out.String())
			}
			if tt.want != "" && !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestLoopCancelled(t *testing.T) {
	img := drawBoxes(t, tall)
	defer img.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loop{Source: &frames{img: img, n: 1}, Display: capture.NewScript()}
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
