package cli

import (
	"errors"
	"fmt"
	"os"

	"charvision/internal/capture"
	"charvision/internal/config"
	"charvision/internal/glyph"
	cvimage "charvision/internal/image"
	"charvision/internal/refset"
	"charvision/internal/trainer"

	"github.com/spf13/cobra"
)

// NewTrainCmd labels a glyph sheet and writes the reference set.
func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Label the glyphs of a training sheet and save the reference set",
		Long: `Segments the training sheet and shows each glyph in turn. Press the
character the glyph represents (0-9, A-Z), any other key to skip it, or Esc
to quit without saving. Use --labels to label headlessly.`,
		RunE: runTrain,
	}
	cmd.Flags().String("sheet", "", "Training sheet image (default training_chars.png)")
	cmd.Flags().String("labels", "", "Label glyphs from this string instead of key presses ('?' or space skips)")
	cmd.Flags().String("dump-dir", "", "Write each labeled glyph as a PNG into this directory")
	cmd.Flags().String("charset", "", "Characters accepted as labels")
	cmd.Flags().Bool("append", false, "Extend the existing reference set instead of replacing it")
	addRefSetFlags(cmd)
	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd, "sheet", &cfg.Train.Sheet)
	overrideString(cmd, "dump-dir", &cfg.Train.DumpDir)
	overrideString(cmd, "charset", &cfg.Train.Charset)
	overrideString(cmd, "classifications", &cfg.RefSet.Classifications)
	overrideString(cmd, "images", &cfg.RefSet.Images)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkImageFormat(cfg.Train.Sheet); err != nil {
		return err
	}

	sheet, err := cvimage.LoadMat(cfg.Train.Sheet)
	if err != nil {
		return fmt.Errorf("error: image not read from file %s: %w", cfg.Train.Sheet, err)
	}
	defer sheet.Close()

	params := glyph.ParamsFromConfig(cfg.Glyph)
	store := refStore(cfg)

	var base *refset.Set
	if mustGetBool(cmd, "append") && store.Exists() {
		base, err = store.Load(params.Width, params.Height)
		if err != nil {
			return err
		}
		fmt.Printf("appending to %d existing samples\n", base.Len())
	}

	t := &trainer.Trainer{
		Params:  params,
		Charset: cfg.Train.Charset,
		Out:     os.Stdout,
	}
	if cfg.Train.DumpDir != "" {
		if t.Dumper, err = trainer.NewDumper(cfg.Train.DumpDir, 4); err != nil {
			return err
		}
	}

	if labels := mustGetString(cmd, "labels"); labels != "" {
		t.Labeler = trainer.NewSequenceLabeler(labels)
	} else {
		windows := capture.NewWindows()
		defer windows.Close()
		t.Labeler = &trainer.WindowLabeler{
			Display: windows,
			Color:   config.MustColor(cfg.Match.BoxColor),
		}
	}

	set, sum, err := t.Train(sheet, base)
	if errors.Is(err, trainer.ErrAborted) {
		fmt.Println("training aborted, nothing saved")
		return nil
	}
	if err != nil {
		return err
	}

	if err := store.Save(set); err != nil {
		return fmt.Errorf("error, %w, exiting program", err)
	}
	fmt.Print(sum)
	fmt.Printf("saved %d samples to %s and %s\n", set.Len(), store.ClassificationsPath, store.ImagesPath)
	return nil
}

func refStore(cfg *config.Config) refset.Store {
	return refset.Store{
		ClassificationsPath: cfg.RefSet.Classifications,
		ImagesPath:          cfg.RefSet.Images,
	}
}
