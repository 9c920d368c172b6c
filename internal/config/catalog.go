package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TierSpec is one server tier row of the reward catalog file.
type TierSpec struct {
	Code       string  `yaml:"code"`
	MaxRarity  int     `yaml:"max_rarity"`
	Multiplier float64 `yaml:"multiplier"`
	ServerID   *int64  `yaml:"server_id,omitempty"`
}

// DropSpec is one seed row for the drop table.
type DropSpec struct {
	ItemID      string  `yaml:"item_id"`
	ItemName    string  `yaml:"item_name,omitempty"`
	Rarity      int     `yaml:"rarity"`
	Weight      float64 `yaml:"weight"`
	ServerScope string  `yaml:"server_scope,omitempty"`
	Inactive    bool    `yaml:"inactive,omitempty"`
	Description string  `yaml:"description,omitempty"`
}

type Catalog struct {
	Default *TierSpec  `yaml:"default"`
	Tiers   []TierSpec `yaml:"tiers"`
	Drops   []DropSpec `yaml:"drops"`
}

// ErrCatalogNotFound is returned when the catalog file does not exist;
// callers fall back to the built-in catalog.
var ErrCatalogNotFound = errors.New("reward catalog file not found")

func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrCatalogNotFound
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCatalogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read reward catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse reward catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Tiers))
	for i, t := range c.Tiers {
		code := strings.TrimSpace(t.Code)
		if code == "" {
			return nil, fmt.Errorf("reward catalog: tier #%d has no code", i)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("reward catalog: duplicated tier %q", code)
		}
		seen[code] = struct{}{}
		if t.MaxRarity < 0 || t.Multiplier < 0 {
			return nil, fmt.Errorf("reward catalog: tier %q has negative values", code)
		}
	}
	for i, d := range c.Drops {
		if strings.TrimSpace(d.ItemID) == "" {
			return nil, fmt.Errorf("reward catalog: drop #%d has no item_id", i)
		}
		if !d.Inactive && d.Weight <= 0 {
			return nil, fmt.Errorf("reward catalog: active drop %q needs weight > 0", d.ItemID)
		}
	}
	return &c, nil
}
