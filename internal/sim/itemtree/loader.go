package itemtree

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed item_tree.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("https://sortcraft.ai/schemas/item_tree.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Document is the on-disk form of a tree.
type Document struct {
	Version string `json:"tree_version,omitempty"`
	Root    Node   `json:"root"`
}

// Node is a category, an item (has ID) or an alias entry (has Alias).
// A category with a Range expands to one item per damage value.
type Node struct {
	Name     string         `json:"name"`
	ID       string         `json:"id,omitempty"`
	Damage   *int           `json:"damage,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Alias    string         `json:"alias,omitempty"`
	Range    *DamageRange   `json:"range,omitempty"`
	Children []Node         `json:"children,omitempty"`
}

type DamageRange struct {
	ID  string `json:"id"`
	Min int    `json:"dmin"`
	Max int    `json:"dmax"`
}

func (n Node) isItem() bool  { return n.ID != "" && n.Alias == "" }
func (n Node) isAlias() bool { return n.Alias != "" }

func Parse(raw []byte, src AliasSource) (*Tree, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("item_tree schema: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("item_tree.json: %w", err)
	}
	if err := s.Validate(generic); err != nil {
		return nil, fmt.Errorf("item_tree.json: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("item_tree.json: %w", err)
	}
	return Build(doc, src)
}

// ParseVersion returns the tree_version of a document without building it.
func ParseVersion(raw []byte) (string, error) {
	var head struct {
		Version string `json:"tree_version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("item_tree.json: %w", err)
	}
	return head.Version, nil
}

// Build assigns orders depth-first in document order.
func Build(doc Document, src AliasSource) (*Tree, error) {
	if doc.Root.Name == "" {
		return nil, ErrNoRoot
	}
	t := New(doc.Root.Name)
	t.SetVersion(doc.Version)
	b := builder{tree: t, src: src}
	if err := b.fill(t.RootName(), doc.Root); err != nil {
		return nil, err
	}
	return t, nil
}

type builder struct {
	tree  *Tree
	src   AliasSource
	order int
}

func (b *builder) next() int {
	b.order++
	return b.order
}

func (b *builder) fill(category string, n Node) error {
	if r := n.Range; r != nil {
		if r.Max < r.Min {
			return fmt.Errorf("item_tree.json: category %q: dmax %d < dmin %d", n.Name, r.Max, r.Min)
		}
		for d := r.Min; d <= r.Max; d++ {
			name := strings.ToLower(fmt.Sprintf("%s%s-%d", n.Name, r.ID, d))
			if _, err := b.tree.AddItem(category, Item{Name: name, ID: r.ID, Damage: d, Order: b.next()}); err != nil {
				return err
			}
		}
	}
	for _, child := range n.Children {
		switch {
		case child.isAlias():
			if err := b.tree.RegisterAlias(category, child.Name, child.Alias, b.next(), b.src); err != nil {
				return fmt.Errorf("item_tree.json: alias %q: %w", child.Alias, err)
			}
		case child.isItem():
			damage := WildcardDamage
			if child.Damage != nil {
				damage = *child.Damage
			}
			it := Item{Name: child.Name, ID: child.ID, Damage: damage, Extra: child.Data, Order: b.next()}
			if _, err := b.tree.AddItem(category, it); err != nil {
				return err
			}
		default:
			c, err := b.tree.AddCategory(category, child.Name)
			if err != nil {
				return err
			}
			if err := b.fill(c.Name(), child); err != nil {
				return err
			}
		}
	}
	return nil
}
