package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/itemtree"
)

// DefaultMaxStack applies to items missing from items.json.
const DefaultMaxStack = 64

var armorSlots = map[string]int{
	"helmet":     0,
	"chestplate": 1,
	"leggings":   2,
	"boots":      3,
}

type Catalogs struct {
	Items ItemCatalog
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string

	aliases map[string][]itemtree.AliasEntry
}

type ItemDef struct {
	ID        string    `json:"id"`
	MaxStack  int       `json:"max_stack,omitempty"`
	MaxDamage int       `json:"max_damage,omitempty"`
	Subtypes  bool      `json:"subtypes,omitempty"`
	Armor     *ArmorDef `json:"armor,omitempty"`
	Aliases   []string  `json:"aliases,omitempty"`
}

type ArmorDef struct {
	Slot  string `json:"slot"` // "helmet","chestplate","leggings","boots"
	Level int    `json:"level"`
}

var (
	_ container.Policy     = (*ItemCatalog)(nil)
	_ itemtree.AliasSource = (*ItemCatalog)(nil)
)

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return out.parse(raw)
}

// ParseItems builds a catalog from the raw bytes of items.json.
func ParseItems(raw []byte) (*ItemCatalog, error) {
	var c ItemCatalog
	if err := c.parse(raw); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *ItemCatalog) parse(raw []byte) error {
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	if err := c.setDefs(defs); err != nil {
		return err
	}
	c.DefsDigest = sha256Hex(raw)
	return nil
}

// NewItemCatalog builds a catalog from in-memory definitions.
func NewItemCatalog(defs []ItemDef) (*ItemCatalog, error) {
	var c ItemCatalog
	if err := c.setDefs(defs); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *ItemCatalog) setDefs(defs []ItemDef) error {
	c.Defs = map[string]ItemDef{}
	c.aliases = map[string][]itemtree.AliasEntry{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.MaxStack < 0 || d.MaxDamage < 0 {
			return fmt.Errorf("items.json: %s: negative limits", d.ID)
		}
		if d.Armor != nil {
			if _, ok := armorSlots[d.Armor.Slot]; !ok {
				return fmt.Errorf("items.json: %s: unknown armor slot %q", d.ID, d.Armor.Slot)
			}
		}
		c.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(c.Defs))
	for id := range c.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	c.Palette = ids
	c.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		c.Index[id] = uint16(i)
		for _, alias := range c.Defs[id].Aliases {
			c.aliases[alias] = append(c.aliases[alias], itemtree.AliasEntry{ID: id, Damage: itemtree.WildcardDamage})
		}
	}
	palJSON, _ := json.Marshal(ids)
	c.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func (c *ItemCatalog) MaxStackSize(id string) int {
	d, ok := c.Defs[id]
	if !ok || d.MaxStack == 0 {
		if ok && d.MaxDamage > 0 {
			return 1
		}
		return DefaultMaxStack
	}
	return d.MaxStack
}

func (c *ItemCatalog) MaxDamage(id string) int { return c.Defs[id].MaxDamage }

func (c *ItemCatalog) HasSubtypes(id string) bool { return c.Defs[id].Subtypes }

func (c *ItemCatalog) Armor(id string) (container.ArmorInfo, bool) {
	d, ok := c.Defs[id]
	if !ok || d.Armor == nil {
		return container.ArmorInfo{}, false
	}
	return container.ArmorInfo{Slot: armorSlots[d.Armor.Slot], Level: d.Armor.Level}, true
}

// AliasEntries lists the items declaring alias, in palette order.
func (c *ItemCatalog) AliasEntries(alias string) []itemtree.AliasEntry {
	list := c.aliases[alias]
	out := make([]itemtree.AliasEntry, len(list))
	copy(out, list)
	return out
}
