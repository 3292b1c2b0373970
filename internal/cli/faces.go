package cli

import (
	"errors"
	"fmt"

	"charvision/internal/capture"
	"charvision/internal/config"
	"charvision/internal/face"

	"github.com/spf13/cobra"
)

// NewFacesCmd runs live face and eye detection.
func NewFacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faces",
		Short: "Detect faces and eyes in the camera feed",
		Long: `Shows the camera feed and a copy with a rectangle around each face and
a circle around each eye. Mouth and nose cascades are used when given.
Press Esc to quit.`,
		RunE: runFaces,
	}
	cmd.Flags().String("source", "", "Camera index, video file or stream URL (default 0)")
	cmd.Flags().String("face-cascade", "", "Face cascade file")
	cmd.Flags().String("eyes-cascade", "", "Eyes cascade file")
	cmd.Flags().String("mouth-cascade", "", "Mouth cascade file (optional)")
	cmd.Flags().String("nose-cascade", "", "Nose cascade file (optional)")
	return cmd
}

func applyFaceFlags(cmd *cobra.Command, cfg *config.Config) {
	overrideString(cmd, "face-cascade", &cfg.Faces.FaceCascade)
	overrideString(cmd, "eyes-cascade", &cfg.Faces.EyesCascade)
	overrideString(cmd, "mouth-cascade", &cfg.Faces.MouthCascade)
	overrideString(cmd, "nose-cascade", &cfg.Faces.NoseCascade)
}

// newDetector loads the cascades and tells the operator which one failed.
func newDetector(cmd *cobra.Command, cfg *config.Config) (*face.Detector, error) {
	det, err := face.NewDetector(face.CascadesFromConfig(cfg.Faces), face.Params{
		ScaleFactor:  cfg.Faces.ScaleFactor,
		MinNeighbors: cfg.Faces.MinNeighbors,
		MinSize:      cfg.Faces.MinSize,
	})
	var ce *face.CascadeError
	if errors.As(err, &ce) {
		fmt.Fprintf(cmd.OutOrStdout(), "Error loading %s cascade\n", ce.Name)
	}
	return det, err
}

func runFaces(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd, "source", &cfg.Faces.Source)
	applyFaceFlags(cmd, cfg)

	// The camera is opened before the cascades are loaded.
	cam, err := capture.Open(cfg.Faces.Source)
	if err != nil {
		return err
	}
	defer cam.Close()

	det, err := newDetector(cmd, cfg)
	if err != nil {
		return err
	}
	defer det.Close()

	windows := capture.NewWindows()
	defer windows.Close()

	ctx, stop := signalContext()
	defer stop()

	loop := &face.Loop{
		Detector: det,
		Source:   cam,
		Display:  windows,
		Style:    face.StyleFromConfig(cfg.Faces),
	}
	return loop.Run(ctx)
}
