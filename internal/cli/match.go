package cli

import (
	"fmt"
	"os"

	"charvision/internal/capture"
	"charvision/internal/config"
	"charvision/internal/glyph"
	cvimage "charvision/internal/image"
	"charvision/internal/knn"
	"charvision/internal/matcher"
	"charvision/internal/ocr"

	"github.com/spf13/cobra"
)

// NewMatchCmd reads characters from the camera (or an image) with the
// trained reference set.
func NewMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Read characters from the camera with the trained reference set",
		Long: `Loads the reference set and shows the camera feed. Press c to read the
characters in the current frame, Esc to quit. With --image the image is
read once and the program exits.`,
		RunE: runMatch,
	}
	cmd.Flags().String("source", "", "Camera index, video file or stream URL (default 0)")
	cmd.Flags().String("image", "", "Read this image once instead of the camera")
	cmd.Flags().Bool("ocr", false, "Cross-check every glyph with Tesseract")
	cmd.Flags().Int("k", 1, "Number of neighbours that vote")
	cmd.Flags().String("backend", "", "KNN backend: brute or hnsw")
	addRefSetFlags(cmd)
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd, "source", &cfg.Match.Source)
	overrideBool(cmd, "ocr", &cfg.Match.OCR)
	overrideInt(cmd, "k", &cfg.Match.K)
	overrideString(cmd, "backend", &cfg.Match.Backend)
	overrideString(cmd, "classifications", &cfg.RefSet.Classifications)
	overrideString(cmd, "images", &cfg.RefSet.Images)
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := mustGetString(cmd, "image")
	if path != "" {
		if err := checkImageFormat(path); err != nil {
			return err
		}
	}

	m, closeOCR, err := newMatcher(cfg)
	if err != nil {
		return err
	}
	defer closeOCR()

	if path != "" {
		frame, err := cvimage.LoadMat(path)
		if err != nil {
			return err
		}
		defer frame.Close()

		r, err := m.Read(frame, nil)
		if err != nil {
			return err
		}
		matcher.Report(os.Stdout, r, m.OCR != nil)
		return nil
	}

	cam, err := capture.Open(cfg.Match.Source)
	if err != nil {
		return err
	}
	defer cam.Close()

	windows := capture.NewWindows()
	defer windows.Close()

	ctx, stop := signalContext()
	defer stop()

	loop := &matcher.Loop{
		Matcher:    m,
		Source:     cam,
		Display:    windows,
		CaptureKey: cfg.Match.CaptureRune(),
		Out:        os.Stdout,
	}
	return loop.Run(ctx)
}

// newMatcher loads the reference set and trains the classifier. The
// returned func releases the OCR engine, if one was created.
func newMatcher(cfg *config.Config) (*matcher.Matcher, func(), error) {
	params := glyph.ParamsFromConfig(cfg.Glyph)
	set, err := refStore(cfg).Load(params.Width, params.Height)
	if err != nil {
		return nil, nil, fmt.Errorf("error, %w, exiting program", err)
	}

	clf, err := knn.Train(set, knn.Options{Backend: knn.Backend(cfg.Match.Backend), K: cfg.Match.K})
	if err != nil {
		return nil, nil, err
	}

	m := &matcher.Matcher{
		Params:     params,
		Classifier: clf,
		K:          cfg.Match.K,
		BoxColor:   config.MustColor(cfg.Match.BoxColor),
	}
	closeOCR := func() {}
	if cfg.Match.OCR {
		engine, err := ocr.NewEngine(cfg.Train.Charset)
		if err != nil {
			return nil, nil, err
		}
		m.OCR = engine
		closeOCR = func() { engine.Close() }
	}
	return m, closeOCR, nil
}
