// Package cli holds the cobra commands shared by the charvision binaries.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"charvision/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var initOnce sync.Once

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// Standalone prepares cmd to run as the root of its own binary.
func Standalone(cmd *cobra.Command, use string) *cobra.Command {
	initOnce.Do(func() { cobra.OnInitialize(initConfig) })
	cmd.Use = use
	cmd.SilenceUsage = true
	cmd.PersistentFlags().String("config", "", "YAML config file")
	return cmd
}

// NewRootCmd returns the multi-command charvision binary.
func NewRootCmd() *cobra.Command {
	initOnce.Do(func() { cobra.OnInitialize(initConfig) })
	root := &cobra.Command{
		Use:   "charvision",
		Short: "Character recognition and face detection with OpenCV",
		Long: `charvision trains a KNN character classifier from a glyph sheet, reads
characters from a camera or image with it, and detects faces with Haar
cascades. It can also serve both over HTTP.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.AddCommand(
		NewTrainCmd(),
		NewMatchCmd(),
		NewFacesCmd(),
		NewInspectCmd(),
		NewServeCmd(),
		NewVersionCmd("charvision"),
	)
	return root
}

// Execute runs cmd and exits with status 1 on error.
func Execute(cmd *cobra.Command) {
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the --config file, if any, and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
