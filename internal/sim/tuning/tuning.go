package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	EnableAutoRefill          bool `yaml:"enable_auto_refill"`
	AutoRefillBeforeBreak     bool `yaml:"auto_refill_before_break"`
	AutoRefillDamageThreshold int  `yaml:"auto_refill_damage_threshold"`
	EnableAutoEquipArmor      bool `yaml:"enable_auto_equip_armor"`
	InvertToolDamage          bool `yaml:"invert_tool_damage"`

	// MaxDefaultPasses caps the fallback sorting loop.
	MaxDefaultPasses int `yaml:"max_default_passes"`
	// ChestMethod is the default method for non-inventory containers:
	// "default", "even_stacks", "horizontal" or "vertical".
	ChestMethod string `yaml:"chest_method"`

	Inventory Grid `yaml:"inventory"`
}

type Grid struct {
	Size    int `yaml:"size"`
	RowSize int `yaml:"row_size"`
}

func Defaults() Tuning {
	return Tuning{
		EnableAutoRefill:          true,
		AutoRefillBeforeBreak:     false,
		AutoRefillDamageThreshold: 5,
		EnableAutoEquipArmor:      false,
		InvertToolDamage:          true,
		MaxDefaultPasses:          50,
		ChestMethod:               "default",
		Inventory:                 Grid{Size: 36, RowSize: 9},
	}
}

// Load reads tuning.yaml on top of Defaults. An empty path returns the
// defaults.
func Load(path string) (Tuning, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(raw)
}

// Parse decodes a tuning.yaml document on top of Defaults.
func Parse(raw []byte) (Tuning, error) {
	t := Defaults()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.ChestMethod = strings.ToLower(strings.TrimSpace(t.ChestMethod))
	if t.ChestMethod == "" {
		t.ChestMethod = "default"
	}
	if t.MaxDefaultPasses <= 0 {
		t.MaxDefaultPasses = 50
	}
}

func (t Tuning) Validate() error {
	switch t.ChestMethod {
	case "default", "even_stacks", "horizontal", "vertical":
	default:
		return fmt.Errorf("unknown chest_method %q", t.ChestMethod)
	}
	if t.AutoRefillDamageThreshold < 0 {
		return fmt.Errorf("auto_refill_damage_threshold must be >= 0")
	}
	if t.Inventory.RowSize <= 0 || t.Inventory.Size <= 0 || t.Inventory.Size%t.Inventory.RowSize != 0 {
		return fmt.Errorf("inventory size %d is not a multiple of row_size %d", t.Inventory.Size, t.Inventory.RowSize)
	}
	return nil
}
