// Package zones maps bidding-zone codes and EIC identifiers to display names.
package zones

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed zones.yaml
var defaultCatalog []byte

// Zone is one bidding zone
type Zone struct {
	Code string `yaml:"code" json:"code"`
	EIC  string `yaml:"eic" json:"eic"`
	Name string `yaml:"name" json:"name"`
}

// Catalog indexes zones by code and by EIC
type Catalog struct {
	zones  []Zone
	byCode map[string]Zone
	byEIC  map[string]Zone
}

type catalogFile struct {
	Zones []Zone `yaml:"zones"`
}

// Default returns the embedded catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded zone catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Codes must be unique and non-empty.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse zone catalog: %w", err)
	}

	c := &Catalog{
		byCode: make(map[string]Zone, len(f.Zones)),
		byEIC:  make(map[string]Zone, len(f.Zones)),
	}
	for i, z := range f.Zones {
		z.Code = strings.TrimSpace(z.Code)
		if z.Code == "" {
			return nil, fmt.Errorf("zone %d: empty code", i)
		}
		if _, dup := c.byCode[z.Code]; dup {
			return nil, fmt.Errorf("zone %q: duplicate code", z.Code)
		}
		c.byCode[z.Code] = z
		if z.EIC != "" {
			c.byEIC[z.EIC] = z
		}
		c.zones = append(c.zones, z)
	}

	sort.Slice(c.zones, func(i, j int) bool { return c.zones[i].Code < c.zones[j].Code })
	return c, nil
}

// Zones returns every zone sorted by code
func (c *Catalog) Zones() []Zone {
	out := make([]Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

// Lookup finds a zone by code or EIC
func (c *Catalog) Lookup(id string) (Zone, bool) {
	if z, ok := c.byCode[id]; ok {
		return z, true
	}
	z, ok := c.byEIC[id]
	return z, ok
}

// DisplayName returns the zone's name, falling back to id
func (c *Catalog) DisplayName(id string) string {
	if z, ok := c.Lookup(id); ok && z.Name != "" {
		return z.Name
	}
	return id
}
