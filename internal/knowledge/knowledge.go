// Package knowledge serves static travel tips from an embedded YAML file.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed kb.yaml
var defaultKB []byte

type Region struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Section is a group of tips. A section with neither Region nor Keywords
// applies to every destination.
type Section struct {
	Region   string   `yaml:"region"`
	Keywords []string `yaml:"keywords"`
	Tips     []string `yaml:"tips"`
}

type Category struct {
	Name     string    `yaml:"name"`
	Aliases  []string  `yaml:"aliases"`
	Sections []Section `yaml:"sections"`
}

type Base struct {
	Regions    []Region   `yaml:"regions"`
	Categories []Category `yaml:"categories"`
}

// Load parses the embedded knowledge base.
func Load() (*Base, error) {
	return Parse(defaultKB)
}

func Parse(data []byte) (*Base, error) {
	var kb Base
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	for i, c := range kb.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("knowledge base category %d has no name", i)
		}
	}
	return &kb, nil
}

// Region returns the region whose keywords appear in destination, or "".
func (kb *Base) Region(destination string) string {
	d := normalize(destination)
	for _, r := range kb.Regions {
		if r.Name == d || containsAny(d, r.Keywords) {
			return r.Name
		}
	}
	return ""
}

// Lookup returns the tips for destination in category, de-duplicated and in
// file order. An empty category means every category. An unknown category
// yields nothing.
func (kb *Base) Lookup(destination, category string) []string {
	region := kb.Region(destination)
	text := normalize(destination + " " + category)

	var cats []Category
	if strings.TrimSpace(category) == "" {
		cats = kb.Categories
	} else if c, ok := kb.category(category); ok {
		cats = []Category{c}
	}

	seen := map[string]bool{}
	var out []string
	for _, c := range cats {
		for _, s := range c.Sections {
			if !s.applies(region, text) {
				continue
			}
			for _, tip := range s.Tips {
				if !seen[tip] {
					seen[tip] = true
					out = append(out, tip)
				}
			}
		}
	}
	return out
}

func (kb *Base) category(name string) (Category, bool) {
	n := normalize(name)
	for _, c := range kb.Categories {
		if normalize(c.Name) == n {
			return c, true
		}
		for _, a := range c.Aliases {
			if normalize(a) == n {
				return c, true
			}
		}
	}
	return Category{}, false
}

func (s Section) applies(region, text string) bool {
	if s.Region == "" && len(s.Keywords) == 0 {
		return true
	}
	if s.Region != "" && s.Region == region {
		return true
	}
	return containsAny(text, s.Keywords)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsAny matches whole words so "goa" does not match "goat".
func containsAny(text string, keywords []string) bool {
	padded := " " + strings.NewReplacer(",", " ", ".", " ", "-", " ", "_", " ").Replace(text) + " "
	for _, k := range keywords {
		if strings.Contains(padded, " "+normalize(k)+" ") {
			return true
		}
	}
	return false
}
