package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
)

// RouterFileName is the project configuration file
const RouterFileName = "treb-router.toml"

// loadRouterConfig loads and parses treb-router.toml if it exists.
// Returns (nil, nil) when the file does not exist.
func loadRouterConfig(projectRoot string) (*config.RouterFileConfig, error) {
	path := filepath.Join(projectRoot, RouterFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var cfg config.RouterFileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", RouterFileName, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", RouterFileName, strings.Join(keys, ", "))
	}

	// Expand environment variables in instance fields
	for name, inst := range cfg.Instances {
		inst.RPCURL = os.ExpandEnv(inst.RPCURL)
		inst.PrivateKey = os.ExpandEnv(inst.PrivateKey)
		cfg.Instances[name] = inst
	}

	return &cfg, nil
}

// mergeRouterConfig overlays the file's [router] table onto the defaults.
// Zero values in the file keep the default.
func mergeRouterConfig(base config.RouterConfig, file config.RouterConfig) config.RouterConfig {
	merged := base
	if file.Name != "" {
		merged.Name = file.Name
	}
	if file.MaxLeafSize > 0 {
		merged.MaxLeafSize = file.MaxLeafSize
	}
	if file.Declarations != "" {
		merged.Declarations = file.Declarations
	}
	if file.SourceDir != "" {
		merged.SourceDir = file.SourceDir
	}
	if file.ArtifactsDir != "" {
		merged.ArtifactsDir = file.ArtifactsDir
	}
	if file.ExcludeFunctions != nil {
		merged.ExcludeFunctions = file.ExcludeFunctions
	}
	merged.AllowSlotChanges = file.AllowSlotChanges
	return merged
}
