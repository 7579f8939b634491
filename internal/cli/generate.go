package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-router/internal/cli/render"
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "generate [instance]",
		Aliases: []string{"gen"},
		Short:   "Render the router source without deploying",
		Long: `Render the router for the current declarations, routing to the module
addresses of the last completed deployment of an instance. Modules that have
never been deployed are routed to the zero address.

Examples:
  treb-router generate
  treb-router generate sepolia -o src/generated/Router.sol`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationInstanceArg: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.GenerateRouter.Run(cmd.Context(), app.Config.Instance)
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), result.Source)
			} else {
				if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				if err := os.WriteFile(output, []byte(result.Source), 0644); err != nil {
					return fmt.Errorf("failed to write router source: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), render.FormatSuccess(fmt.Sprintf("Wrote %s (%d selectors, depth %d)", output, result.Selectors, result.Depth)))
			}

			if len(result.Unresolved) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), render.FormatWarning("Routed to the zero address: "+strings.Join(result.Unresolved, ", ")))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the source to a file instead of stdout")

	return cmd
}
