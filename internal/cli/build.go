package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-router/internal/adapters/progress"
	"github.com/trebuchet-org/treb-router/internal/cli/render"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [instance]",
		Short: "Verify, deploy and route the declared modules",
		Long: `Run a full build for an instance:

  1. Verify storage namespaces against the last completed deployment and check
     that every declared interface is implemented. Fatal findings abort before
     anything is broadcast; warnings need acknowledgment.
  2. Deploy new and changed modules concurrently.
  3. Regenerate the router and deploy it when its source changed.
  4. Deploy the entry-point proxy, or upgrade it to the new router after
     confirmation.

Every step is written to the pending deployment document. An interrupted build
resumes where it stopped; --clear discards all previous state first.

Examples:
  treb-router build
  treb-router build sepolia --yes
  treb-router build local --dry-run`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationInstanceArg: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			sink := getSink(cmd)

			result, err := app.BuildRouter.Execute(cmd.Context(), usecase.BuildParams{
				Instance: app.Config.Instance,
				Clear:    app.Config.Clear,
			})

			var stages []progress.StageDuration
			if reporter, ok := sink.(*progress.SpinnerProgressReporter); ok {
				reporter.Stop()
				stages = reporter.Durations()
			}

			if app.Config.JSON {
				if jsonErr := writeJSON(cmd, buildJSON(result, err)); jsonErr != nil {
					return jsonErr
				}
				if err != nil {
					return ErrReported
				}
				return nil
			}

			renderer := render.NewBuildRenderer(cmd.OutOrStdout())
			if err != nil {
				renderer.RenderError(err)
				return ErrReported
			}
			if app.Config.Debug {
				renderer = renderer.WithStages(stages)
			}
			return renderer.Render(result)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Simulate transactions instead of broadcasting")
	cmd.Flags().BoolP("yes", "y", false, "Answer yes to every confirmation")
	cmd.Flags().Bool("clear", false, "Discard previous deployment state before building")

	return cmd
}

// buildOutput is the JSON shape of a build
type buildOutput struct {
	*usecase.BuildResult
	Error string `json:"error,omitempty"`
}

func buildJSON(result *usecase.BuildResult, err error) buildOutput {
	out := buildOutput{BuildResult: result}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// writeJSON prints v as indented JSON
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
