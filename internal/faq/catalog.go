// Package faq holds the fixed catalog of answerable topics and the keyword
// scorer that picks the best catalog entry for a customer message.
package faq

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Entry is one answerable topic. Question is for display only; matching
// runs against Keywords.
type Entry struct {
	Question string   `yaml:"question" json:"question"`
	Answer   string   `yaml:"answer" json:"answer"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Catalog is an ordered, read-only list of entries. It is never mutated after
// construction, so a single value may be shared by any number of goroutines.
type Catalog struct {
	entries []Entry
}

type catalogFile struct {
	Entries []Entry `yaml:"entries"`
}

// Default returns the built-in Dobbs catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// MustDefault is Default for package-level initialisation and tests.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("faq: built-in catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a replacement catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(f.Entries)
}

// New builds a catalog from entries, lower-casing and trimming keywords.
// Entry order is preserved.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog has no entries")
	}

	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		e.Answer = strings.TrimSpace(e.Answer)
		if e.Answer == "" {
			return nil, fmt.Errorf("entry %d (%q): answer is empty", i, e.Question)
		}

		kws := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("entry %d (%q): no keywords", i, e.Question)
		}
		e.Keywords = kws
		out = append(out, e)
	}

	return &Catalog{entries: out}, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the catalog in order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		e.Keywords = append([]string(nil), e.Keywords...)
		out[i] = e
	}
	return out
}
