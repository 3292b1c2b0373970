package face

import (
	"context"
	"errors"
	"fmt"
	"log"

	"charvision/internal/capture"
	"charvision/internal/keys"

	"gocv.io/x/gocv"
)

// FaceDetector is satisfied by *Detector.
type FaceDetector interface {
	Detect(frame gocv.Mat) []Face
}

// Loop shows the source feed and the annotated feed until Escape.
type Loop struct {
	Detector FaceDetector
	Source   capture.Source
	Display  capture.Display
	Style    Style
}

// Run processes frames until Escape, cancellation or an empty frame.
func (l *Loop) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for ctx.Err() == nil {
		if err := l.Source.Read(&frame); err != nil {
			if errors.Is(err, capture.ErrEmptyFrame) {
				log.Printf("%v", err)
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}
		l.Display.Show(capture.WindowSource, frame)

		faces := l.Detector.Detect(frame)
		Draw(&frame, faces, l.Style)
		l.Display.Show(capture.WindowFaces, frame)

		if l.Display.WaitKey(1) == keys.Escape {
			return nil
		}
	}
	return nil
}
