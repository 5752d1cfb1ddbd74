package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// LoadPolicy reads the sequence policy YAML. Keys missing from the file keep
// their built-in defaults; an empty path means defaults only.
func LoadPolicy(path string) (usecase.PolicyConfig, error) {
	cfg := usecase.DefaultPolicyConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse policy file: %w", err)
	}
	return cfg, nil
}
