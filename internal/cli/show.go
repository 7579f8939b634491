package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-router/internal/cli/render"
	"github.com/trebuchet-org/treb-router/internal/domain"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [instance]",
		Short: "Show the deployment documents of an instance",
		Long: `Show the last completed deployment of an instance with every recorded
artifact and transaction, any interrupted build and the generation history.

Examples:
  treb-router show
  treb-router show sepolia --json`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationInstanceArg: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ShowDeployment.Run(cmd.Context(), app.Config.Instance)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("no deployment found for instance %s", app.Config.Instance)
				}
				return err
			}

			if app.Config.JSON {
				return writeJSON(cmd, result)
			}
			return render.NewDeploymentRenderer(cmd.OutOrStdout()).Render(result)
		},
	}
}
