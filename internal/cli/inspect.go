package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"charvision/internal/glyph"
	"charvision/internal/knn"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// NewInspectCmd summarises a reference set.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the label histogram of a reference set",
		Long: `Prints how many samples each label has. With --evaluate every sample is
classified against the rest of the set and the errors are reported.`,
		RunE: runInspect,
	}
	cmd.Flags().Bool("evaluate", false, "Run a leave-one-out evaluation")
	cmd.Flags().Int("k", 1, "Number of neighbours that vote during evaluation")
	cmd.Flags().String("backend", "", "KNN backend: brute or hnsw")
	addRefSetFlags(cmd)
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideInt(cmd, "k", &cfg.Match.K)
	overrideString(cmd, "backend", &cfg.Match.Backend)
	overrideString(cmd, "classifications", &cfg.RefSet.Classifications)
	overrideString(cmd, "images", &cfg.RefSet.Images)
	if err := cfg.Validate(); err != nil {
		return err
	}

	params := glyph.ParamsFromConfig(cfg.Glyph)
	set, err := refStore(cfg).Load(params.Width, params.Height)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSAMPLES")
	fmt.Fprintln(w, "-----\t-------")
	for _, lc := range set.Histogram() {
		fmt.Fprintf(w, "%c\t%d\n", rune(lc.Label), lc.Count)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d samples, %d features each\n", set.Len(), set.FeatureLen())

	if !mustGetBool(cmd, "evaluate") {
		return nil
	}

	bar := progressbar.NewOptions(set.Len(),
		progressbar.OptionSetDescription("Evaluating"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
	opts := knn.Options{Backend: knn.Backend(cfg.Match.Backend), K: cfg.Match.K}
	ev, err := knn.LeaveOneOut(set, opts, func() { _ = bar.Add(1) })
	if err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Printf("\nAccuracy: %.1f%% (%d/%d)\n", ev.Accuracy()*100, ev.Correct, ev.Total)
	if len(ev.Misses) == 0 {
		return nil
	}
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tERRORS")
	for _, lc := range ev.ErrorsByLabel() {
		fmt.Fprintf(w, "%c\t%d\n", rune(lc.Label), lc.Count)
	}
	w.Flush()
	for _, m := range ev.Misses {
		fmt.Printf("  sample %d: %c read as %c\n", m.Row, rune(m.Label), rune(m.Predicted))
	}
	return nil
}
