package providers

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed feeds.yaml
var defaultCatalogYAML []byte

// Catalog maps region codes to RSS feed URLs.
//
//	default:
//	  - https://...
//	regions:
//	  us:
//	    - https://...
type Catalog struct {
	Default []string            `yaml:"default"`
	Regions map[string][]string `yaml:"regions"`
}

// DefaultCatalog returns the built-in feed list.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded feeds.yaml is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a YAML file. An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse feeds: %w", err)
	}
	if len(c.Default) == 0 && len(c.Regions) == 0 {
		return nil, fmt.Errorf("feeds catalog is empty")
	}
	normalized := make(map[string][]string, len(c.Regions))
	for region, feeds := range c.Regions {
		normalized[strings.ToLower(region)] = feeds
	}
	c.Regions = normalized
	return &c, nil
}

// FeedsFor returns the feeds of region, or the default list for an unknown region.
func (c *Catalog) FeedsFor(region string) []string {
	if feeds, ok := c.Regions[strings.ToLower(strings.TrimSpace(region))]; ok {
		return feeds
	}
	return c.Default
}
