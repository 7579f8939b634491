package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
)

const (
	// DataDirName holds deployment documents, relative to the project root
	DataDirName = ".treb-router"
	// DefaultInstance is used when treb-router.toml declares no instances
	DefaultInstance = "local"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, DataDirName),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		AssumeYes:      v.GetBool("yes"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		DryRun:         v.GetBool("dry_run"),
		Clear:          v.GetBool("clear"),
		Compiler:       v.GetString("compiler"),
		Router:         config.DefaultRouterConfig(),
		Instances:      make(map[string]config.InstanceConfig),
	}

	foundryConfig, err := loadFoundryConfig(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load foundry config: %w", err)
	}
	cfg.FoundryConfig = foundryConfig
	if foundryConfig != nil {
		cfg.Router.ArtifactsDir = foundryConfig.OutDir()
	}

	routerFile, err := loadRouterConfig(projectRoot)
	if err != nil {
		return nil, err
	}
	if routerFile != nil {
		cfg.ConfigSource = filepath.Join(projectRoot, RouterFileName)
		cfg.Router = mergeRouterConfig(cfg.Router, routerFile.Router)
		for name, inst := range routerFile.Instances {
			inst.RPCURL = foundryConfig.ResolveRPC(inst.RPCURL)
			cfg.Instances[name] = inst
		}
	}
	if len(cfg.Instances) == 0 {
		cfg.Instances[DefaultInstance] = config.InstanceConfig{DryRun: true}
	}

	// An instance left unresolved here is chosen interactively by the CLI
	name := v.GetString("instance")
	if name == "" && len(cfg.Instances) == 1 {
		name = cfg.InstanceNames()[0]
	}
	if name != "" {
		if err := cfg.UseInstance(name); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// FindProjectRoot walks up from current directory to find treb-router.toml or foundry.toml
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range []string{RouterFileName, "foundry.toml"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a router project (%s or foundry.toml not found)", RouterFileName)
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up config file
	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	// Set up environment variables
	v.SetEnvPrefix("TREB_ROUTER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "5m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		if err != nil {
			panic(err)
		}
	})

	return v
}
