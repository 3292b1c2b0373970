package trainer

import (
	"errors"
	"image"
	"image/color"
	"os"
	"strings"
	"testing"

	"charvision/internal/capture"
	"charvision/internal/glyph"
	"charvision/internal/keys"
	"charvision/internal/refset"

	"gocv.io/x/gocv"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// scriptLabeler returns the given keys in order.
type scriptLabeler struct {
	keys []keys.Key
	seen int
}

func (s *scriptLabeler) Label(*gocv.Mat, *glyph.Glyph) (keys.Key, error) {
	k := s.keys[s.seen]
	s.seen++
	return k, nil
}

func fakeGlyphs(n int) []glyph.Glyph {
	gs := make([]glyph.Glyph, n)
	for i := range gs {
		gs[i].Feature = []float32{float32(i), float32(i)}
	}
	return gs
}

func threeBoxSheet(t *testing.T) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 80, 200, gocv.MatTypeCV8UC3)
	for _, b := range []image.Rectangle{
		image.Rect(20, 20, 40, 50),
		image.Rect(65, 20, 85, 50),
		image.Rect(110, 20, 130, 50),
	} {
		gocv.Rectangle(&img, b, color.RGBA{A: 255}, -1)
	}
	return img
}

func TestAccept(t *testing.T) {
	tests := []struct {
		key  keys.Key
		want rune
		ok   bool
	}{
		{keys.Of('A'), 'A', true},
		{keys.Of('a'), 'A', true},
		{keys.Of('7'), '7', true},
		{keys.Of('-'), 0, false},
		{keys.Of(' '), 0, false},
		{keys.None, 0, false},
		{keys.Enter, 0, false},
	}
	for _, tt := range tests {
		got, ok := Accept(tt.key, charset)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Accept(%v) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRun(t *testing.T) {
	set := refset.New(2, 1)
	l := &scriptLabeler{keys: []keys.Key{keys.Of('a'), keys.Of('#'), keys.Of('9'), keys.Of('A')}}

	sum, err := Run(fakeGlyphs(4), nil, l, set, charset, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Candidates != 4 || sum.Labeled != 3 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.PerLabel['A'] != 2 || sum.PerLabel['9'] != 1 {
		t.Errorf("PerLabel = %v", sum.PerLabel)
	}
	want := []int32{'A', '9', 'A'}
	got := set.Labels()
	if len(got) != len(want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d = %c, want %c", i, got[i], want[i])
		}
	}
	if row := set.Row32(1); row[0] != 2 {
		t.Errorf("second stored row = %v, want feature of glyph 2", row)
	}
	if !strings.Contains(sum.String(), "3 labeled") {
		t.Errorf("String() = %q", sum.String())
	}
}

func TestRunEscapeAborts(t *testing.T) {
	set := refset.New(2, 1)
	l := &scriptLabeler{keys: []keys.Key{keys.Of('1'), keys.Escape, keys.Of('2')}}

	sum, err := Run(fakeGlyphs(3), nil, l, set, charset, nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if sum.Labeled != 1 || l.seen != 2 {
		t.Errorf("labeled=%d seen=%d", sum.Labeled, l.seen)
	}
}

func TestRunSequenceExhausted(t *testing.T) {
	set := refset.New(2, 1)
	sum, err := Run(fakeGlyphs(4), nil, NewSequenceLabeler("1?"), set, charset, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Labeled != 1 || sum.Skipped != 3 || set.Len() != 1 {
		t.Errorf("summary = %+v, set len %d", sum, set.Len())
	}
}

func TestSequenceLabeler(t *testing.T) {
	s := NewSequenceLabeler("A? b")
	want := []keys.Key{keys.Of('A'), keys.None, keys.Of(' '), keys.Of('b')}
	for i, w := range want {
		k, err := s.Label(nil, nil)
		if err != nil || k != w {
			t.Errorf("label %d = %v, %v; want %v", i, k, err, w)
		}
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d", s.Remaining())
	}
	if _, err := s.Label(nil, nil); err == nil {
		t.Error("expected io.EOF after the last label")
	}
}

func TestTrainerWithDump(t *testing.T) {
	sheet := threeBoxSheet(t)
	defer sheet.Close()
	before := sheet.Clone()
	defer before.Close()

	dir := t.TempDir()
	d, err := NewDumper(dir, 4)
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	tr := &Trainer{
		Params:  glyph.DefaultParams(),
		Charset: charset,
		Labeler: NewSequenceLabeler("X?Y"),
		Dumper:  d,
		Out:     &out,
	}
	set, sum, err := tr.Train(sheet, nil)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if sum.Candidates != 3 || sum.Labeled != 2 || set.Len() != 2 {
		t.Errorf("summary = %+v, set len %d", sum, set.Len())
	}
	if set.FeatureLen() != 600 {
		t.Errorf("FeatureLen = %d", set.FeatureLen())
	}
	if !strings.Contains(out.String(), "training complete") {
		t.Errorf("output = %q", out.String())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || d.Count() != 2 {
		t.Errorf("dumped %d files (count %d), want 2", len(entries), d.Count())
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(sheet, before, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	if n := gocv.CountNonZero(gray); n != 0 {
		t.Errorf("Train modified the input sheet (%d pixels)", n)
	}
}

func TestTrainerAppend(t *testing.T) {
	sheet := threeBoxSheet(t)
	defer sheet.Close()

	base := refset.New(20, 30)
	if err := base.Append('Q', make([]float32, 600)); err != nil {
		t.Fatal(err)
	}

	tr := &Trainer{Params: glyph.DefaultParams(), Charset: charset, Labeler: NewSequenceLabeler("111")}
	set, _, err := tr.Train(sheet, base)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if set.Len() != 4 || set.Label(0) != 'Q' {
		t.Errorf("len=%d first=%c", set.Len(), set.Label(0))
	}
	if base.Len() != 1 {
		t.Errorf("base was modified: len %d", base.Len())
	}
}

func TestWindowLabeler(t *testing.T) {
	sheet := threeBoxSheet(t)
	defer sheet.Close()
	seg, err := glyph.Segment(sheet, glyph.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	script := capture.NewScript(keys.None, keys.Of('k'))
	l := &WindowLabeler{Display: script, Color: color.RGBA{R: 255, A: 255}}
	k, err := l.Label(&sheet, &seg.Glyphs[0])
	if err != nil || k != keys.None {
		t.Fatalf("Label on timeout = %v, %v; want none", k, err)
	}
	k, err = l.Label(&sheet, &seg.Glyphs[1])
	if err != nil || k != keys.Of('k') {
		t.Fatalf("Label = %v, %v", k, err)
	}
	for _, name := range []string{capture.WindowGlyph, capture.WindowGlyphSized, capture.WindowSheet} {
		if script.Shown[name] != 2 {
			t.Errorf("window %q shown %d times", name, script.Shown[name])
		}
	}
}

func TestRunSkipsTimedOutWait(t *testing.T) {
	sheet := threeBoxSheet(t)
	defer sheet.Close()
	seg, err := glyph.Segment(sheet, glyph.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	l := &WindowLabeler{Display: capture.NewScript(keys.Of('7'), keys.None, keys.Of('A'))}
	set := refset.New(20, 30)
	sum, err := Run(seg.Glyphs, &sheet, l, set, charset, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Labeled != 2 || sum.Skipped != 1 {
		t.Errorf("summary = %+v, want 2 labeled and 1 skipped", sum)
	}
}
