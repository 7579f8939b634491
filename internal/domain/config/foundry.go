package config

// FoundryConfig is the part of foundry.toml the router build reads
type FoundryConfig struct {
	Profile      map[string]ProfileConfig `toml:"profile"`
	RpcEndpoints map[string]string        `toml:"rpc_endpoints"`
}

// ProfileConfig represents one [profile.<name>] table
type ProfileConfig struct {
	SrcPath string `toml:"src,omitempty"`
	OutPath string `toml:"out,omitempty"`
}

// OutDir returns the artifact directory of the default profile, or "out"
func (f *FoundryConfig) OutDir() string {
	if f != nil {
		if p, ok := f.Profile["default"]; ok && p.OutPath != "" {
			return p.OutPath
		}
	}
	return "out"
}

// ResolveRPC maps an rpc_endpoints alias to its URL. Anything that is not an
// alias is returned unchanged.
func (f *FoundryConfig) ResolveRPC(value string) string {
	if f == nil {
		return value
	}
	if url, ok := f.RpcEndpoints[value]; ok {
		return url
	}
	return value
}
