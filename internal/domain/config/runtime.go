package config

import (
	"fmt"
	"sort"
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Instance       string          // Deployment instance identifier
	InstanceConfig *InstanceConfig // Resolved [instances.<name>] table

	// Execution settings
	Debug          bool
	NonInteractive bool
	AssumeYes      bool // Answer yes to every operator confirmation
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Command-specific settings (only populated for relevant commands)
	DryRun   bool
	Clear    bool
	Compiler string // "forge", "offline", or empty to pick automatically

	// Config source tracking
	ConfigSource string // path of treb-router.toml, empty when defaults are used

	// Resolved configurations
	Router        RouterConfig
	Instances     map[string]InstanceConfig
	FoundryConfig *FoundryConfig // nil outside a Foundry project
}

// InstanceNames returns the configured instance names in order
func (c *RuntimeConfig) InstanceNames() []string {
	names := make([]string, 0, len(c.Instances))
	for name := range c.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UseInstance selects one of the configured instances
func (c *RuntimeConfig) UseInstance(name string) error {
	inst, ok := c.Instances[name]
	if !ok {
		return fmt.Errorf("unknown instance %q (configured: %v)", name, c.InstanceNames())
	}
	c.Instance = name
	c.InstanceConfig = &inst
	c.DryRun = c.DryRun || inst.DryRun
	return nil
}

