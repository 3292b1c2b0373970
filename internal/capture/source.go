// Package capture wraps frame sources (cameras, video files, streams) and
// highgui display windows.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrOpen is returned when a source cannot be opened.
	ErrOpen = errors.New("unable to open the camera")
	// ErrEmptyFrame is returned when a source yields no frame.
	ErrEmptyFrame = errors.New("unable to capture frame")
)

// Source produces frames.
type Source interface {
	// Read fills frame with the next image. It returns ErrEmptyFrame when
	// no frame could be read.
	Read(frame *gocv.Mat) error
	Close() error
}

// Camera is a Source backed by a gocv VideoCapture.
type Camera struct {
	vc *gocv.VideoCapture
}

// ParseSource interprets spec as a device index if it is a non-negative
// integer and as a file path or stream URL otherwise.
func ParseSource(spec string) interface{} {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0
	}
	if n, err := strconv.Atoi(spec); err == nil && n >= 0 {
		return n
	}
	return spec
}

// Open opens the camera, file or stream named by spec.
func Open(spec string) (*Camera, error) {
	dev := ParseSource(spec)
	vc, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return nil, fmt.Errorf("%w %v: %v", ErrOpen, dev, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w %v", ErrOpen, dev)
	}
	return &Camera{vc: vc}, nil
}

func (c *Camera) Read(frame *gocv.Mat) error {
	if ok := c.vc.Read(frame); !ok || frame.Empty() {
		return ErrEmptyFrame
	}
	return nil
}

func (c *Camera) Close() error {
	return c.vc.Close()
}
