package capture

import (
	"gocv.io/x/gocv"

	"charvision/internal/keys"
)

// Window names shared by the programs.
const (
	WindowSource     = "Webcam Source Feed"
	WindowFaces      = "Detected face"
	WindowFrame      = "frame"
	WindowROI        = "ROI"
	WindowGlyph      = "matROI"
	WindowGlyphSized = "matROIResized"
	WindowSheet      = "imgTrainingNumbers"
)

// Display shows images and reports key presses.
type Display interface {
	Show(name string, img gocv.Mat)
	// WaitKey waits up to delayMs milliseconds (0 blocks) for a key.
	WaitKey(delayMs int) keys.Key
	Close() error
}

// Windows is a Display backed by highgui windows, created on first use.
type Windows struct {
	windows map[string]*gocv.Window
	order   []string
}

// NewWindows returns an empty window set.
func NewWindows() *Windows {
	return &Windows{windows: make(map[string]*gocv.Window)}
}

func (w *Windows) Show(name string, img gocv.Mat) {
	win, ok := w.windows[name]
	if !ok {
		win = gocv.NewWindow(name)
		w.windows[name] = win
		w.order = append(w.order, name)
	}
	win.IMShow(img)
}

// WaitKey pumps the highgui event loop. At least one window must have been
// shown, otherwise no key can be delivered and None is returned.
func (w *Windows) WaitKey(delayMs int) keys.Key {
	if len(w.order) == 0 {
		return keys.None
	}
	return keys.FromCode(w.windows[w.order[0]].WaitKey(delayMs))
}

func (w *Windows) Close() error {
	var firstErr error
	for _, name := range w.order {
		if err := w.windows[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.windows = make(map[string]*gocv.Window)
	w.order = nil
	return firstErr
}

// Script is a headless Display that replays a fixed key sequence and
// records which windows were shown. When the script is exhausted it
// returns Escape.
type Script struct {
	Keys  []keys.Key
	Shown map[string]int
}

// NewScript returns a Script replaying ks.
func NewScript(ks ...keys.Key) *Script {
	return &Script{Keys: ks, Shown: make(map[string]int)}
}

func (s *Script) Show(name string, _ gocv.Mat) {
	if s.Shown == nil {
		s.Shown = make(map[string]int)
	}
	s.Shown[name]++
}

func (s *Script) WaitKey(int) keys.Key {
	if len(s.Keys) == 0 {
		return keys.Escape
	}
	k := s.Keys[0]
	s.Keys = s.Keys[1:]
	return k
}

func (s *Script) Close() error { return nil }
