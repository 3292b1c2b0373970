package cli

import (
	"fmt"
	"strings"

	cvimage "charvision/internal/image"

	"github.com/spf13/cobra"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// overrideString copies a string flag into dst when it was set explicitly,
// so flags win over the config file and environment.
func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst = mustGetString(cmd, name)
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		*dst = mustGetInt(cmd, name)
	}
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) {
	if cmd.Flags().Changed(name) {
		*dst = mustGetBool(cmd, name)
	}
}

func addRefSetFlags(cmd *cobra.Command) {
	cmd.Flags().String("classifications", "", "Classifications file (.xml or .yml)")
	cmd.Flags().String("images", "", "Flattened training images file (.xml or .yml)")
}

func checkImageFormat(path string) error {
	if !cvimage.IsSupportedFormat(path) {
		return fmt.Errorf("unsupported image format %s (supported: %s)", path, strings.Join(cvimage.SupportedFormats(), " "))
	}
	return nil
}
