package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mistakeknot/hivemind/internal/core"
)

type unitsFile struct {
	Units []core.DiscoveredUnit `yaml:"units"`
}

// LoadUnits reads a discovered-units YAML file. A missing or empty path
// yields no units, which makes the startup reconcile a no-op.
func LoadUnits(path string) ([]core.DiscoveredUnit, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read units file: %w", err)
	}
	var f unitsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse units file: %w", err)
	}
	for i, unit := range f.Units {
		if unit.ID == "" {
			return nil, fmt.Errorf("units file entry %d missing id", i)
		}
	}
	return f.Units, nil
}
