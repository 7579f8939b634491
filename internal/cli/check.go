package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-router/internal/cli/render"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [instance]",
		Short: "Run the storage and interface checks without deploying",
		Long: `Compare the current declarations against the last completed deployment of
an instance and report every finding. Exits non-zero when any finding is fatal.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationInstanceArg: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.CheckLayout.Run(cmd.Context(), app.Config.Instance)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else if err := render.NewCheckRenderer(cmd.OutOrStdout()).Render(result); err != nil {
				return err
			}

			if result.Report.HasFatal() {
				return ErrReported
			}
			return nil
		},
	}
}
