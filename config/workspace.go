package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// WorkspaceFile is the per-workspace settings file, relative to the
// workspace root.
const WorkspaceFile = ".pickhost.toml"

// Validatable is an optional interface config structs implement to check
// themselves after loading.
type Validatable interface {
	Validate() error
}

// LoadTOML decodes a TOML file into a struct of type T, starting from the
// given base. A missing file returns the base unchanged.
func LoadTOML[T any](path string, base *T) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := new(T)
	if base != nil {
		*cfg = *base
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if v, ok := any(cfg).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating %s: %w", path, err)
		}
	}

	return cfg, nil
}

// LoadWorkspace overlays the workspace settings file found under root onto
// base. Workspace values win over user values; fields the file omits keep
// the base value.
func LoadWorkspace(root string, base *Config) (*Config, error) {
	return LoadTOML(filepath.Join(root, WorkspaceFile), base)
}

// WorkspacePath returns the settings file path for a workspace root.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceFile)
}
