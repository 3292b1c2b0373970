package face

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"charvision/internal/capture"
	"charvision/internal/config"
	"charvision/internal/keys"
	"charvision/pkg/geometry"

	"gocv.io/x/gocv"
)

func TestBands(t *testing.T) {
	f := image.Rect(10, 20, 110, 140)
	if got, want := MouthBand(f).ToImage(), image.Rect(10, 80, 110, 140); got != want {
		t.Errorf("MouthBand = %v, want %v", got, want)
	}
	if got, want := NoseBand(f).ToImage(), image.Rect(10, 50, 110, 110); got != want {
		t.Errorf("NoseBand = %v, want %v", got, want)
	}
}

func TestNewDetectorMissingCascade(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.xml")
	tests := []struct {
		name     string
		c        Cascades
		cascade  string
		wantText string
	}{
		{"face", Cascades{Face: missing, Eyes: "eyes.xml"}, "face", "loading face cascade"},
		{"empty face", Cascades{Eyes: "eyes.xml"}, "face", "loading face cascade"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(tt.c, DefaultParams())
			if d != nil {
				t.Error("expected nil detector")
			}
			if !errors.Is(err, ErrCascade) {
				t.Fatalf("err = %v, want ErrCascade", err)
			}
			var ce *CascadeError
			if !errors.As(err, &ce) || ce.Name != tt.cascade || ce.Path != tt.c.Face {
				t.Errorf("err = %#v, want CascadeError for %s", err, tt.cascade)
			}
			msg := err.Error()
			if !strings.Contains(msg, tt.wantText) {
				t.Errorf("err = %q, want %q", msg, tt.wantText)
			}
			if msg[0] != strings.ToLower(msg[:1])[0] {
				t.Errorf("err = %q, should start lower case", msg)
			}
		})
	}
}

func TestCascadesFromConfig(t *testing.T) {
	c := CascadesFromConfig(config.Default().Faces)
	if c.Face != "haarcascade_frontalface_alt.xml" || c.Eyes != "haarcascade_eye_tree_eyeglasses.xml" {
		t.Errorf("cascades = %+v", c)
	}
	if c.Mouth != "" || c.Nose != "" {
		t.Errorf("mouth and nose should be off by default: %+v", c)
	}
}

func TestDraw(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 120, gocv.MatTypeCV8UC3)
	defer frame.Close()

	style := StyleFromConfig(config.Default().Faces)
	faces := []Face{{
		Rect: geometry.FromImageRect(image.Rect(10, 10, 100, 100)),
		Eyes: []geometry.Circle{geometry.InscribedCircle(image.Rect(10, 10, 100, 100), image.Rect(20, 20, 40, 40))},
	}}
	Draw(&frame, faces, style)

	// Mats are BGR: magenta face outline, blue eye outline.
	tests := []struct {
		name    string
		row     int
		col     int
		b, g, r uint8
	}{
		{"face corner", 10, 10, 255, 0, 255},
		{"eye top", 40 - 10, 40, 255, 0, 0},
		{"untouched", 60, 60, 0, 0, 0},
	}
	for _, tt := range tests {
		v := frame.GetVecbAt(tt.row, tt.col)
		if v[0] != tt.b || v[1] != tt.g || v[2] != tt.r {
			t.Errorf("%s: pixel = %v, want [%d %d %d]", tt.name, v, tt.b, tt.g, tt.r)
		}
	}
}

type fakeDetector struct{ calls int }

func (f *fakeDetector) Detect(gocv.Mat) []Face {
	f.calls++
	return []Face{{Rect: geometry.RectInt{X: 1, Y: 1, Width: 4, Height: 4}}}
}

type frames struct{ n int }

func (f *frames) Read(dst *gocv.Mat) error {
	if f.n == 0 {
		return capture.ErrEmptyFrame
	}
	f.n--
	blank := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	blank.CopyTo(dst)
	blank.Close()
	return nil
}

func (f *frames) Close() error { return nil }

func TestLoop(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		keys   []keys.Key
		calls  int
	}{
		{"escape", 10, []keys.Key{keys.None, keys.Of('x'), keys.Escape}, 3},
		{"source ends", 2, []keys.Key{keys.None, keys.None, keys.None}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{}
			script := capture.NewScript(tt.keys...)
			l := &Loop{
				Detector: det,
				Source:   &frames{n: tt.frames},
				Display:  script,
				Style:    Style{Face: color.RGBA{R: 255, A: 255}, Thickness: 1},
			}
			if err := l.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if det.calls != tt.calls {
				t.Errorf("detect calls = %d, want %d", det.calls, tt.calls)
			}
			if script.Shown[capture.WindowSource] != tt.calls || script.Shown[capture.WindowFaces] != tt.calls {
				t.Errorf("shown = %v", script.Shown)
			}
		})
	}
}
