package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-router/internal/adapters/progress"
	"github.com/trebuchet-org/treb-router/internal/app"
	"github.com/trebuchet-org/treb-router/internal/config"
	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
	// sinkKey is the context key for the progress sink
	sinkKey contextKey = "sink"
)

// annotationInstanceArg marks commands whose first argument names an instance
const annotationInstanceArg = "instance-arg"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treb-router",
		Short: "Module router build pipeline for Foundry projects",
		Long: `treb-router composes independently compiled modules behind one generated
router contract. It verifies that storage namespaces evolve safely between
builds, deploys changed modules, regenerates the router and upgrades the
entry-point proxy, recording every step in a resumable deployment document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)
			if cmd.Annotations[annotationInstanceArg] == "true" && len(args) > 0 {
				v.Set("instance", args[0])
			}

			sink := newProgressSink(cmd, v)
			appInstance, err := initApp(cmd, v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			ctx = context.WithValue(ctx, sinkKey, sink)

			// The configured timeout bounds transaction submission inside the
			// broadcaster. Commands themselves run without a deadline.
			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspect",
		Title: "Inspection Commands",
	})

	buildCmd := NewBuildCmd()
	buildCmd.GroupID = "main"
	rootCmd.AddCommand(buildCmd)

	checkCmd := NewCheckCmd()
	checkCmd.GroupID = "main"
	rootCmd.AddCommand(checkCmd)

	showCmd := NewShowCmd()
	showCmd.GroupID = "inspect"
	rootCmd.AddCommand(showCmd)

	selectorsCmd := NewSelectorsCmd()
	selectorsCmd.GroupID = "inspect"
	rootCmd.AddCommand(selectorsCmd)

	generateCmd := NewGenerateCmd()
	generateCmd.GroupID = "inspect"
	rootCmd.AddCommand(generateCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initApp wires the app. When several instances are configured and none was
// named, the operator picks one and the app is wired again for it.
func initApp(cmd *cobra.Command, v *viper.Viper, sink usecase.ProgressSink) (*app.App, error) {
	appInstance, err := app.InitApp(v, sink)
	if err != nil {
		return nil, err
	}
	if appInstance.Config.Instance != "" || cmd.Annotations[annotationInstanceArg] != "true" {
		return appInstance, nil
	}

	name, err := appInstance.Selector.SelectInstance(cmd.Context(), appInstance.Config.Instances, "Select instance")
	if err != nil {
		return nil, err
	}
	v.Set("instance", name)
	return app.InitApp(v, sink)
}

// newProgressSink returns a spinner for interactive builds and a no-op sink otherwise
func newProgressSink(cmd *cobra.Command, v *viper.Viper) usecase.ProgressSink {
	if cmd.Name() != "build" || v.GetBool("json") {
		return usecase.NopProgress{}
	}
	interactive := !v.GetBool("non_interactive") && isatty.IsTerminal(os.Stderr.Fd())
	return progress.NewSpinnerProgressReporter(cmd.ErrOrStderr(), interactive)
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	a, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return a, nil
}

// getSink retrieves the progress sink from the command context
func getSink(cmd *cobra.Command) usecase.ProgressSink {
	if sink, ok := cmd.Context().Value(sinkKey).(usecase.ProgressSink); ok {
		return sink
	}
	return usecase.NopProgress{}
}

// ErrReported marks an error whose details were already rendered
var ErrReported = errors.New("build failed")
