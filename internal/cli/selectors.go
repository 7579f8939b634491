package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-router/internal/cli/render"
)

// NewSelectorsCmd creates the selectors command
func NewSelectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selectors [query]",
		Short: "List the routed selectors",
		Long: `List every selector the router dispatches, in dispatch order.

A query that is a selector (0x1234abcd) shows the module routing it. Any other
query fuzzy-matches module names and function signatures.

Examples:
  treb-router selectors
  treb-router selectors 0xa9059cbb
  treb-router selectors Tokentransfer`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			result, err := app.ListSelectors.Run(cmd.Context(), query)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return writeJSON(cmd, result)
			}
			return render.NewSelectorsRenderer(cmd.OutOrStdout()).Render(result)
		},
	}
}
