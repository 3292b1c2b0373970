// Package face detects faces with Haar cascades and marks eyes, mouth and
// nose inside each face.
package face

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"charvision/internal/config"
	"charvision/pkg/geometry"

	"gocv.io/x/gocv"
)

// ErrCascade is returned when a cascade file cannot be loaded.
var ErrCascade = errors.New("cascade load failed")

// CascadeError names the cascade that failed to load. It wraps ErrCascade.
type CascadeError struct {
	Name string
	Path string
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("loading %s cascade %q: %v", e.Name, e.Path, ErrCascade)
}

func (e *CascadeError) Unwrap() error { return ErrCascade }

// cascadeScaleImage is CASCADE_SCALE_IMAGE from objdetect.
const cascadeScaleImage = 2

// Params are the detectMultiScale settings shared by every cascade.
type Params struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

// DefaultParams returns scale 1.1, 2 neighbours and a 30x30 minimum.
func DefaultParams() Params {
	return Params{ScaleFactor: 1.1, MinNeighbors: 2, MinSize: 30}
}

// Face is one detection in frame coordinates.
type Face struct {
	Rect   geometry.RectInt   `json:"rect"`
	Eyes   []geometry.Circle  `json:"eyes"`
	Mouths []geometry.RectInt `json:"mouths,omitempty"`
	Noses  []geometry.RectInt `json:"noses,omitempty"`
}

// Cascades names the cascade files. Mouth and Nose are optional.
type Cascades struct {
	Face  string
	Eyes  string
	Mouth string
	Nose  string
}

// CascadesFromConfig extracts the cascade paths.
func CascadesFromConfig(c config.FacesConfig) Cascades {
	return Cascades{Face: c.FaceCascade, Eyes: c.EyesCascade, Mouth: c.MouthCascade, Nose: c.NoseCascade}
}

// Detector holds loaded cascades. It is not safe for concurrent use.
type Detector struct {
	params Params
	face   *gocv.CascadeClassifier
	eyes   *gocv.CascadeClassifier
	mouth  *gocv.CascadeClassifier
	nose   *gocv.CascadeClassifier
}

// NewDetector loads the configured cascades in face, eyes, mouth, nose
// order and fails on the first one that does not load.
func NewDetector(c Cascades, p Params) (*Detector, error) {
	d := &Detector{params: p}
	steps := []struct {
		name     string
		path     string
		dst      **gocv.CascadeClassifier
		optional bool
	}{
		{"face", c.Face, &d.face, false},
		{"eyes", c.Eyes, &d.eyes, false},
		{"mouth", c.Mouth, &d.mouth, true},
		{"nose", c.Nose, &d.nose, true},
	}
	for _, s := range steps {
		if s.path == "" && s.optional {
			continue
		}
		cc, err := loadCascade(s.name, s.path)
		if err != nil {
			d.Close()
			return nil, err
		}
		*s.dst = cc
	}
	return d, nil
}

func loadCascade(name, path string) (*gocv.CascadeClassifier, error) {
	cc := gocv.NewCascadeClassifier()
	if path == "" || !cc.Load(path) {
		cc.Close()
		return nil, &CascadeError{Name: name, Path: path}
	}
	return &cc, nil
}

// Close releases every loaded cascade.
func (d *Detector) Close() error {
	for _, cc := range []*gocv.CascadeClassifier{d.face, d.eyes, d.mouth, d.nose} {
		if cc != nil {
			cc.Close()
		}
	}
	return nil
}

// Detect finds faces in a BGR frame, then eyes (and mouth and nose when
// loaded) inside each face.
func (d *Detector) Detect(frame gocv.Mat) []Face {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	var faces []Face
	for _, fr := range d.detect(d.face, gray) {
		f := Face{Rect: geometry.FromImageRect(fr)}

		roi := gray.Region(fr)
		for _, er := range d.detect(d.eyes, roi) {
			f.Eyes = append(f.Eyes, geometry.InscribedCircle(fr, er))
		}
		roi.Close()

		if d.mouth != nil {
			f.Mouths = d.detectIn(d.mouth, gray, MouthBand(fr))
		}
		if d.nose != nil {
			f.Noses = d.detectIn(d.nose, gray, NoseBand(fr))
		}
		faces = append(faces, f)
	}
	return faces
}

func (d *Detector) detect(cc *gocv.CascadeClassifier, img gocv.Mat) []image.Rectangle {
	minSize := image.Pt(d.params.MinSize, d.params.MinSize)
	return cc.DetectMultiScaleWithParams(img, d.params.ScaleFactor, d.params.MinNeighbors, cascadeScaleImage, minSize, image.Point{})
}

// detectIn runs cc on band of gray and returns hits in frame coordinates.
func (d *Detector) detectIn(cc *gocv.CascadeClassifier, gray gocv.Mat, band geometry.RectInt) []geometry.RectInt {
	band = band.Clamp(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if band.Empty() {
		return nil
	}
	roi := gray.Region(band.ToImage())
	defer roi.Close()

	var hits []geometry.RectInt
	for _, h := range d.detect(cc, roi) {
		hits = append(hits, geometry.FromImageRect(h).Offset(image.Pt(band.X, band.Y)))
	}
	return hits
}

// MouthBand is the lower half of a face.
func MouthBand(face image.Rectangle) geometry.RectInt {
	return geometry.RectInt{X: face.Min.X, Y: face.Min.Y + face.Dy()/2, Width: face.Dx(), Height: face.Dy() - face.Dy()/2}
}

// NoseBand is the middle half of a face, from 1/4 to 3/4 of its height.
func NoseBand(face image.Rectangle) geometry.RectInt {
	top, bottom := face.Dy()/4, face.Dy()*3/4
	return geometry.RectInt{X: face.Min.X, Y: face.Min.Y + top, Width: face.Dx(), Height: bottom - top}
}

// Style sets overlay colours and line thickness.
type Style struct {
	Face      color.RGBA
	Eye       color.RGBA
	Mouth     color.RGBA
	Nose      color.RGBA
	Thickness int
}

// StyleFromConfig parses the configured hex colours.
func StyleFromConfig(c config.FacesConfig) Style {
	return Style{
		Face:      config.MustColor(c.FaceColor),
		Eye:       config.MustColor(c.EyeColor),
		Mouth:     config.MustColor(c.MouthColor),
		Nose:      config.MustColor(c.NoseColor),
		Thickness: c.Thickness,
	}
}

// Draw marks faces on frame.
func Draw(frame *gocv.Mat, faces []Face, s Style) {
	for _, f := range faces {
		gocv.Rectangle(frame, f.Rect.ToImage(), s.Face, s.Thickness)
		for _, e := range f.Eyes {
			gocv.Circle(frame, e.Center, e.Radius, s.Eye, s.Thickness)
		}
		for _, m := range f.Mouths {
			gocv.Rectangle(frame, m.ToImage(), s.Mouth, s.Thickness/2+1)
		}
		for _, n := range f.Noses {
			gocv.Rectangle(frame, n.ToImage(), s.Nose, s.Thickness/2+1)
		}
	}
}
