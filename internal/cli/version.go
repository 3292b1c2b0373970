package cli

import (
	"fmt"

	"charvision/internal/version"

	"github.com/spf13/cobra"
)

// NewVersionCmd prints build metadata for program.
func NewVersionCmd(program string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(version.String(program))
		},
	}
}
