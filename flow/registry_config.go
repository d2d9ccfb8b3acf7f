package flow

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// RegistryConfig is the declarative shape of a registry manifest: a flat
// list of name -> category bindings, for deployments that want to declare
// their flow catalog in a file rather than call Register in code.
type RegistryConfig struct {
	Flows []RegistryConfigEntry `yaml:"flows"`
}

// RegistryConfigEntry binds one flow name to a category and optional
// metadata, read from YAML.
type RegistryConfigEntry struct {
	Name     string         `yaml:"name"`
	Category string         `yaml:"category"`
	Metadata map[string]any `yaml:"metadata"`
}

// LoadRegistryConfig parses a YAML manifest of name/category bindings. It
// does not itself register anything — callers apply the bindings with
// ApplyRegistryConfig once they have the matching Entry.Describe closures
// available, since the config alone can't carry a Flow value.
func LoadRegistryConfig(r io.Reader) (RegistryConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return RegistryConfig{}, ExecutionError(context.Background(), "registry", "failed to read registry config", err)
	}
	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RegistryConfig{}, ConfigError("registry", fmt.Sprintf("invalid registry config: %v", err))
	}
	for i, e := range cfg.Flows {
		if e.Name == "" {
			return RegistryConfig{}, ConfigError("registry", fmt.Sprintf("flows[%d]: name is required", i))
		}
	}
	return cfg, nil
}

// CategoryOf looks up the category bound to name in cfg, if any.
func (c RegistryConfig) CategoryOf(name string) (string, bool) {
	for _, e := range c.Flows {
		if e.Name == name {
			return e.Category, true
		}
	}
	return "", false
}

// ApplyRegistryConfig registers every binding in cfg into r, using
// describe (when non-nil) to build each entry's Describe closure; each
// entry's Metadata bag is a copy of its per-entry YAML metadata.
func ApplyRegistryConfig(r *Registry, cfg RegistryConfig, describe func(name string) func() string) error {
	for _, e := range cfg.Flows {
		md := make(Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		var desc func() string
		if describe != nil {
			desc = describe(e.Name)
		}
		if err := r.Register(Entry{Name: e.Name, Category: e.Category, Metadata: md, Describe: desc}); err != nil {
			return err
		}
	}
	return nil
}
