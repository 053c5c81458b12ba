package model

import (
	"fmt"
	"sort"
)

// Registry holds the models known to the paging layer, keyed by model name.
type Registry struct {
	models map[string]*Model
	order  []string
}

// NewRegistry creates a registry populated with the given models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model)}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a model. Names and tables must be unique.
func (r *Registry) Register(m *Model) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("model requires a name")
	}
	if m.Table == "" {
		return fmt.Errorf("model %s requires a table", m.Name)
	}
	if _, exists := r.models[m.Name]; exists {
		return fmt.Errorf("model %s is already registered", m.Name)
	}
	for _, other := range r.models {
		if other.Table == m.Table {
			return fmt.Errorf("models %s and %s share table %s", other.Name, m.Name, m.Table)
		}
	}
	r.models[m.Name] = m
	r.order = append(r.order, m.Name)
	return nil
}

// Model returns the model registered under name.
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Models returns registered models in registration order.
func (r *Registry) Models() []*Model {
	out := make([]*Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}

// Target resolves the target model of a relation.
func (r *Registry) Target(rel Relation) (*Model, error) {
	m, ok := r.models[rel.Target]
	if !ok {
		return nil, fmt.Errorf("relation %s targets unknown model %s", rel.Name, rel.Target)
	}
	return m, nil
}

// Validate checks that every relation targets a registered model, and fills
// unset remote columns with the target's identifier column.
func (r *Registry) Validate() error {
	var missing []string
	for _, m := range r.Models() {
		for _, rel := range m.Relations() {
			target, ok := r.models[rel.Target]
			if !ok {
				missing = append(missing, fmt.Sprintf("%s.%s -> %s", m.Name, rel.Name, rel.Target))
				continue
			}
			if rel.RemoteColumn == "" {
				rel.RemoteColumn = target.IDColumn
				m.relations[rel.Name] = rel
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("relations target unknown models: %v", missing)
	}
	return nil
}
