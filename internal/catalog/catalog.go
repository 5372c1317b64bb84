// Package catalog loads the ordered slide lists the player navigates.
package catalog

import (
	"fmt"
	"os"

	"lessonplayer/internal/model"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Modules []Module `yaml:"modules"`

	index map[string]map[string]*Submodule
}

type Module struct {
	ID         string      `yaml:"id"`
	Title      string      `yaml:"title"`
	Submodules []Submodule `yaml:"submodules"`
}

type Submodule struct {
	ID     string             `yaml:"id"`
	Title  string             `yaml:"title"`
	Slides []model.SlideEntry `yaml:"slides"`
}

// Load reads a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) build() error {
	c.index = make(map[string]map[string]*Submodule)
	for mi := range c.Modules {
		m := &c.Modules[mi]
		if m.ID == "" {
			return fmt.Errorf("module %d has no id", mi)
		}
		if _, dup := c.index[m.ID]; dup {
			return fmt.Errorf("duplicate module %q", m.ID)
		}
		subs := make(map[string]*Submodule)
		for si := range m.Submodules {
			s := &m.Submodules[si]
			if _, dup := subs[s.ID]; dup {
				return fmt.Errorf("duplicate submodule %q in module %q", s.ID, m.ID)
			}
			seen := make(map[string]bool)
			for _, slide := range s.Slides {
				if slide.ID == "" {
					return fmt.Errorf("slide without id in %s/%s", m.ID, s.ID)
				}
				if seen[slide.ID] {
					return fmt.Errorf("duplicate slide %q in %s/%s", slide.ID, m.ID, s.ID)
				}
				seen[slide.ID] = true
			}
			subs[s.ID] = s
		}
		c.index[m.ID] = subs
	}
	return nil
}

// Slides returns a submodule's slides in navigation order
func (c *Catalog) Slides(moduleID, submoduleID string) ([]model.SlideEntry, bool) {
	s, ok := c.index[moduleID][submoduleID]
	if !ok {
		return nil, false
	}
	return s.Slides, true
}

// Lookup finds one slide entry
func (c *Catalog) Lookup(moduleID, submoduleID, slideID string) (model.SlideEntry, bool) {
	slides, ok := c.Slides(moduleID, submoduleID)
	if !ok {
		return model.SlideEntry{}, false
	}
	for _, s := range slides {
		if s.ID == slideID {
			return s, true
		}
	}
	return model.SlideEntry{}, false
}
