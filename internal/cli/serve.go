package cli

import (
	"log"

	"charvision/internal/server"

	"github.com/spf13/cobra"
)

// NewServeCmd serves face detection and character reading over HTTP.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve face detection and character reading over HTTP",
		Long: `Starts an HTTP server with POST /api/detectFaces, POST /api/recognizeChars
and GET /api/health. Images are sent as {"payload": "<base64>"}.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().Bool("no-faces", false, "Disable face detection")
	cmd.Flags().Bool("no-chars", false, "Disable character reading")
	cmd.Flags().String("face-cascade", "", "Face cascade file")
	cmd.Flags().String("eyes-cascade", "", "Eyes cascade file")
	cmd.Flags().String("mouth-cascade", "", "Mouth cascade file (optional)")
	cmd.Flags().String("nose-cascade", "", "Nose cascade file (optional)")
	addRefSetFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd, "addr", &cfg.Server.Addr)
	overrideString(cmd, "classifications", &cfg.RefSet.Classifications)
	overrideString(cmd, "images", &cfg.RefSet.Images)
	applyFaceFlags(cmd, cfg)

	var faces server.FaceDetector
	if !mustGetBool(cmd, "no-faces") {
		det, err := newDetector(cmd, cfg)
		if err != nil {
			return err
		}
		defer det.Close()
		faces = det
	}

	var chars server.CharReader
	if !mustGetBool(cmd, "no-chars") {
		cfg.Match.OCR = false
		m, closeOCR, err := newMatcher(cfg)
		if err != nil {
			return err
		}
		defer closeOCR()
		chars = m
	}
	if faces == nil && chars == nil {
		log.Printf("warning: both endpoints disabled")
	}

	ctx, stop := signalContext()
	defer stop()
	return server.New(faces, chars).Run(ctx, cfg.Server.Addr)
}
