package nodes

import (
	"sort"
	"sync"
)

// ParameterType tells UIs and the parameter binder how to read a value.
type ParameterType string

const (
	ParameterString  ParameterType = "string"
	ParameterNumber  ParameterType = "number"
	ParameterBoolean ParameterType = "boolean"
	ParameterJSON    ParameterType = "json"
)

// ParameterDefinition describes one user-supplied node parameter.
type ParameterDefinition struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"displayName"`
	Type        ParameterType `json:"type"`
	Default     string        `json:"default,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required,omitempty"`
}

// NodeDefinition captures metadata about a built-in node.
type NodeDefinition struct {
	ID          string                `json:"id"`
	DisplayName string                `json:"displayName"`
	Description string                `json:"description"`
	Group       string                `json:"group"`
	Version     int                   `json:"version"`
	Parameters  []ParameterDefinition `json:"parameters,omitempty"`
	Example     string                `json:"example,omitempty"`

	// Factory builds the node from catalog parameters. Nodes that need Go
	// values to construct leave it nil.
	Factory NodeFactory `json:"-"`
}

// Parameter returns the definition of the named parameter.
func (d NodeDefinition) Parameter(name string) (ParameterDefinition, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDefinition{}, false
}

var (
	catalogMu   sync.RWMutex
	nodeCatalog = make(map[string]NodeDefinition)
)

// RegisterNode makes a node definition discoverable.
func RegisterNode(def NodeDefinition) {
	if def.ID == "" {
		return
	}
	if def.Version == 0 {
		def.Version = 1
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	nodeCatalog[def.ID] = def
}

// RegisteredNodes returns the known nodes sorted by ID.
func RegisteredNodes() []NodeDefinition {
	catalogMu.RLock()
	defer catalogMu.RUnlock()

	ids := make([]string, 0, len(nodeCatalog))
	for id := range nodeCatalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]NodeDefinition, 0, len(ids))
	for _, id := range ids {
		result = append(result, nodeCatalog[id])
	}
	return result
}

// NodeDefinitionFor returns metadata for a registered node.
func NodeDefinitionFor(id string) (NodeDefinition, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	def, ok := nodeCatalog[id]
	return def, ok
}
