// Package menu loads the restaurant's menu and answers lookups against it.
package menu

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"taverna/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

type menuFile struct {
	Items []models.MenuItem `yaml:"items"`
}

// Catalog is an immutable, ordered set of menu items
type Catalog struct {
	items []models.MenuItem
	byID  map[int]int
}

// New builds a catalog from items, validating each one and rejecting
// duplicate IDs.
func New(items []models.MenuItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.MenuItem, 0, len(items)),
		byID:  make(map[int]int, len(items)),
	}
	for i := range items {
		item := items[i]
		if err := models.ValidateMenuItem(&item); err != nil {
			return nil, err
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate menu item id %d", item.ID)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Load parses a YAML menu document
func Load(r io.Reader) (*Catalog, error) {
	var f menuFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	return New(f.Items)
}

// LoadFile reads a YAML menu from path. An empty path yields the built-in menu.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open menu: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in menu
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultMenu))
}

// Items returns a copy of every item in menu order
func (c *Catalog) Items() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.items)
}

// ByID looks an item up by its numeric id
func (c *Catalog) ByID(id int) (models.MenuItem, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.MenuItem{}, false
	}
	return c.items[idx], true
}

// ByCategory returns the items of one category in menu order
func (c *Catalog) ByCategory(category string) []models.MenuItem {
	var out []models.MenuItem
	for _, item := range c.items {
		if item.IsInCategory(models.MenuCategory(category)) {
			out = append(out, item)
		}
	}
	return out
}

// WithDietary keeps the items of list tagged with the dietary label
func WithDietary(list []models.MenuItem, tag string) []models.MenuItem {
	var out []models.MenuItem
	for _, item := range list {
		if item.IsDietary(tag) {
			out = append(out, item)
		}
	}
	return out
}

// Categories lists the distinct categories, sorted
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range c.items {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	sort.Strings(out)
	return out
}

// PromptListing renders the catalog one item per line for inclusion in an
// assistant prompt.
func (c *Catalog) PromptListing() string {
	var b strings.Builder
	for _, item := range c.items {
		fmt.Fprintf(&b, "%d | %s | %s | $%.2f | %s", item.ID, item.Name, item.Category, item.Price, item.Description)
		if len(item.Dietary) > 0 {
			fmt.Fprintf(&b, " | dietary: %s", strings.Join(item.Dietary, ", "))
		}
		if len(item.Allergens) > 0 {
			fmt.Fprintf(&b, " | allergens: %s", strings.Join(item.Allergens, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
