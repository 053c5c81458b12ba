// Package model describes the persistence-layer types the paging adapter
// operates on: models (tables), their relations, and loaded row instances.
package model

import (
	"context"
	"fmt"
	"sync"
)

// DefaultIDColumn is the identifier column used when a model does not name one.
const DefaultIDColumn = "id"

// RelationKind identifies how a relation joins its owner to its target.
type RelationKind int

const (
	// ManyToOne follows a foreign key on the owner row to a single target row.
	ManyToOne RelationKind = iota
	// OneToMany follows a foreign key on target rows back to the owner.
	OneToMany
	// ManyToMany joins owner and target through a junction table.
	ManyToMany
)

func (k RelationKind) String() string {
	switch k {
	case ManyToOne:
		return "many_to_one"
	case OneToMany:
		return "one_to_many"
	case ManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// Junction describes the intermediate table of a many-to-many relation.
// LocalColumn points at the owner key, RemoteColumn at the target key.
type Junction struct {
	Table        string `mapstructure:"table"`
	LocalColumn  string `mapstructure:"local_column"`
	RemoteColumn string `mapstructure:"remote_column"`
}

// Relation is a named edge from one model to another.
//
// LocalColumn is read from the owner row; RemoteColumn is matched on the
// target row (or, for many-to-many, joined against Junction.RemoteColumn).
type Relation struct {
	Name         string
	Kind         RelationKind
	Target       string
	LocalColumn  string
	RemoteColumn string
	Junction     *Junction
}

// IsSingle reports whether the relation resolves to at most one instance.
func (r Relation) IsSingle() bool {
	return r.Kind == ManyToOne
}

// Page is the result envelope of a paged relation query. Total is the number
// of rows matched before the window was applied.
type Page struct {
	Results []*Instance
	Total   int
}

// PaginatedFunc fetches one window of a related collection for an instance.
// after is nil when the caller supplied no cursor.
type PaginatedFunc func(ctx context.Context, inst *Instance, first int, after *int, args map[string]any) (Page, error)

// Model is a table-backed type with a unique identifier column and relations.
type Model struct {
	Name     string
	Table    string
	IDColumn string
	Columns  []string

	relations     map[string]Relation
	relationOrder []string

	mu        sync.RWMutex
	paginated map[string]PaginatedFunc
}

// New creates a model. The id column is always part of the selected columns.
func New(name, table string, columns ...string) *Model {
	m := &Model{
		Name:      name,
		Table:     table,
		IDColumn:  DefaultIDColumn,
		relations: make(map[string]Relation),
		paginated: make(map[string]PaginatedFunc),
	}
	m.Columns = append(m.Columns, m.IDColumn)
	for _, col := range columns {
		if col != m.IDColumn {
			m.Columns = append(m.Columns, col)
		}
	}
	return m
}

// AddRelation declares a relation on the model. Relation names are unique.
func (m *Model) AddRelation(rel Relation) error {
	if rel.Name == "" {
		return fmt.Errorf("relation on model %s requires a name", m.Name)
	}
	if rel.Target == "" {
		return fmt.Errorf("relation %s.%s requires a target model", m.Name, rel.Name)
	}
	if _, exists := m.relations[rel.Name]; exists {
		return fmt.Errorf("relation %s.%s is already defined", m.Name, rel.Name)
	}
	if rel.Kind == ManyToMany && rel.Junction == nil {
		return fmt.Errorf("many-to-many relation %s.%s requires a junction", m.Name, rel.Name)
	}
	if rel.LocalColumn == "" {
		rel.LocalColumn = m.IDColumn
	}
	m.relations[rel.Name] = rel
	m.relationOrder = append(m.relationOrder, rel.Name)
	return nil
}

// RemoteKey returns the target column rel matches on. An unset RemoteColumn
// means the target's identifier column.
func (r Relation) RemoteKey(target *Model) string {
	if r.RemoteColumn != "" || target == nil {
		return r.RemoteColumn
	}
	return target.IDColumn
}

// Relation looks up a declared relation by field name.
func (m *Model) Relation(name string) (Relation, bool) {
	rel, ok := m.relations[name]
	return rel, ok
}

// Relations returns the declared relations in declaration order.
func (m *Model) Relations() []Relation {
	out := make([]Relation, 0, len(m.relationOrder))
	for _, name := range m.relationOrder {
		out = append(out, m.relations[name])
	}
	return out
}

// SetPaginated installs a named paginated accessor, replacing any previous one.
func (m *Model) SetPaginated(name string, fn PaginatedFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paginated[name] = fn
}

// Paginated returns the accessor registered under name.
func (m *Model) Paginated(name string) (PaginatedFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.paginated[name]
	return fn, ok
}
