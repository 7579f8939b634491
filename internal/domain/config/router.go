package config

// DefaultMaxLeafSize is the largest number of selectors rendered as one switch
const DefaultMaxLeafSize = 9

// RouterFileConfig is the raw treb-router.toml structure
type RouterFileConfig struct {
	Router    RouterConfig              `toml:"router"`
	Instances map[string]InstanceConfig `toml:"instances"`
}

// RouterConfig is the [router] table
type RouterConfig struct {
	// Name is the contract name of the generated dispatcher
	Name string `toml:"name"`
	// MaxLeafSize bounds the selectors of one leaf of the dispatch tree
	MaxLeafSize int `toml:"max_leaf_size"`
	// Declarations is the snapshot file emitted by the compiler
	Declarations string `toml:"declarations"`
	// SourceDir is where the generated router source is written for compilation
	SourceDir string `toml:"source_dir"`
	// ArtifactsDir is the compiler output directory
	ArtifactsDir string `toml:"artifacts_dir"`
	// AllowSlotChanges downgrades namespace slot relocation from fatal to a warning
	AllowSlotChanges bool `toml:"allow_slot_changes"`
	// ExcludeFunctions lists name prefixes left out of interface coverage
	ExcludeFunctions []string `toml:"exclude_functions"`
}

// InstanceConfig is one [instances.<name>] table
type InstanceConfig struct {
	RPCURL     string `toml:"rpc_url"`
	ChainID    uint64 `toml:"chain_id"`
	PrivateKey string `toml:"private_key"`
	DryRun     bool   `toml:"dry_run"`
}

// DefaultRouterConfig returns the router settings used when no config file exists
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Name:             "Router",
		MaxLeafSize:      DefaultMaxLeafSize,
		Declarations:     "out/declarations.json",
		SourceDir:        "src/generated",
		ArtifactsDir:     "out",
		ExcludeFunctions: []string{"c_0x", "__"},
	}
}
