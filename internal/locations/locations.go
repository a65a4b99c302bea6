// Package locations holds the state and constituency catalog used by forms and validation.
package locations

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed states.yml
var statesYAML []byte

// State is one entry of the catalog.
type State struct {
	Name           string   `yaml:"name" json:"name"`
	Constituencies []string `yaml:"constituencies" json:"constituencies"`
}

// Catalog is an ordered, read-only list of states.
type Catalog struct {
	states []State
	index  map[string]int
}

var defaultCatalog *Catalog

func init() {
	c, err := Parse(statesYAML)
	if err != nil {
		panic(fmt.Sprintf("locations: embedded catalog: %v", err))
	}
	defaultCatalog = c
}

// Default returns the embedded catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Parse builds a catalog from YAML of the form {states: [{name, constituencies}]}.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		States []State `yaml:"states"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{index: make(map[string]int, len(doc.States))}
	for _, s := range doc.States {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("state with empty name")
		}
		key := strings.ToLower(s.Name)
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("duplicate state %q", s.Name)
		}
		c.index[key] = len(c.states)
		c.states = append(c.states, s)
	}
	return c, nil
}

// States returns a copy of the catalog in declaration order.
func (c *Catalog) States() []State {
	out := make([]State, len(c.states))
	for i, s := range c.states {
		out[i] = State{Name: s.Name, Constituencies: append([]string(nil), s.Constituencies...)}
	}
	return out
}

// HasState reports whether state is in the catalog. Matching ignores case.
func (c *Catalog) HasState(state string) bool {
	_, ok := c.index[strings.ToLower(strings.TrimSpace(state))]
	return ok
}

// HasConstituency reports whether constituency belongs to state.
func (c *Catalog) HasConstituency(state, constituency string) bool {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(state))]
	if !ok {
		return false
	}
	want := strings.TrimSpace(constituency)
	for _, name := range c.states[i].Constituencies {
		if strings.EqualFold(name, want) {
			return true
		}
	}
	return false
}
