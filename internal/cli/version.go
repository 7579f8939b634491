package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-router/internal/config"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of treb-router",
		Run: func(cmd *cobra.Command, args []string) {
			version, commit, date := config.BuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "treb-router version %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
