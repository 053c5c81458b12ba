package config

import (
	"fmt"
	"strings"

	"relay-paging/internal/model"
)

// SchemaConfig declares the models exposed through the GraphQL endpoint.
type SchemaConfig struct {
	Models []ModelConfig `mapstructure:"models"`
}

// ModelConfig declares one table-backed model.
type ModelConfig struct {
	Name      string           `mapstructure:"name"`
	Table     string           `mapstructure:"table"`
	IDColumn  string           `mapstructure:"id_column"`
	Columns   []ColumnConfig   `mapstructure:"columns"`
	Relations []RelationConfig `mapstructure:"relations"`
}

// ColumnConfig declares a column and its scalar kind (string, int, float or boolean).
type ColumnConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// RelationConfig declares a relation from the enclosing model.
type RelationConfig struct {
	Name         string          `mapstructure:"name"`
	Kind         string          `mapstructure:"kind"` // many_to_one, one_to_many, many_to_many
	Target       string          `mapstructure:"target"`
	LocalColumn  string          `mapstructure:"local_column"`
	RemoteColumn string          `mapstructure:"remote_column"`
	Through      *model.Junction `mapstructure:"through"`
}

// DefaultSchema is the cards and tags demo schema used when none is configured.
func DefaultSchema() SchemaConfig {
	return SchemaConfig{Models: []ModelConfig{
		{
			Name:  "Card",
			Table: "cards",
			Columns: []ColumnConfig{
				{Name: "title", Type: "string"},
				{Name: "author_id", Type: "int"},
			},
			Relations: []RelationConfig{
				{
					Name:    "tags",
					Kind:    "many_to_many",
					Target:  "Tag",
					Through: &model.Junction{Table: "card_tags", LocalColumn: "card_id", RemoteColumn: "tag_id"},
				},
				{Name: "author", Kind: "many_to_one", Target: "User", LocalColumn: "author_id"},
			},
		},
		{
			Name:    "Tag",
			Table:   "tags",
			Columns: []ColumnConfig{{Name: "name", Type: "string"}},
			Relations: []RelationConfig{
				{
					Name:    "cards",
					Kind:    "many_to_many",
					Target:  "Card",
					Through: &model.Junction{Table: "card_tags", LocalColumn: "tag_id", RemoteColumn: "card_id"},
				},
			},
		},
		{
			Name:    "User",
			Table:   "users",
			Columns: []ColumnConfig{{Name: "name", Type: "string"}},
			Relations: []RelationConfig{
				{Name: "cards", Kind: "one_to_many", Target: "Card", RemoteColumn: "author_id"},
			},
		},
	}}
}

// ParseRelationKind maps a configured kind name to a relation kind.
func ParseRelationKind(name string) (model.RelationKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "many_to_one", "belongs_to":
		return model.ManyToOne, nil
	case "one_to_many", "has_many":
		return model.OneToMany, nil
	case "many_to_many":
		return model.ManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relation kind %q", name)
	}
}

// BuildRegistry builds and validates a model registry from the schema.
func (s SchemaConfig) BuildRegistry() (*model.Registry, error) {
	registry, err := model.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, mc := range s.Models {
		idColumn := mc.IDColumn
		if idColumn == "" {
			idColumn = model.DefaultIDColumn
		}
		columns := make([]string, 0, len(mc.Columns))
		for _, col := range mc.Columns {
			if col.Name != idColumn {
				columns = append(columns, col.Name)
			}
		}
		m := model.New(mc.Name, mc.Table, columns...)
		if idColumn != m.IDColumn {
			m.IDColumn = idColumn
			m.Columns[0] = idColumn
		}
		for _, rc := range mc.Relations {
			kind, err := ParseRelationKind(rc.Kind)
			if err != nil {
				return nil, fmt.Errorf("relation %s.%s: %w", mc.Name, rc.Name, err)
			}
			if err := m.AddRelation(model.Relation{
				Name:         rc.Name,
				Kind:         kind,
				Target:       rc.Target,
				LocalColumn:  rc.LocalColumn,
				RemoteColumn: rc.RemoteColumn,
				Junction:     rc.Through,
			}); err != nil {
				return nil, err
			}
		}
		if err := registry.Register(m); err != nil {
			return nil, err
		}
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// ColumnTypes returns the declared scalar kind of every typed column, keyed
// by model name and column name.
func (s SchemaConfig) ColumnTypes() map[string]map[string]string {
	out := make(map[string]map[string]string, len(s.Models))
	for _, mc := range s.Models {
		for _, col := range mc.Columns {
			if col.Type == "" {
				continue
			}
			if out[mc.Name] == nil {
				out[mc.Name] = make(map[string]string)
			}
			out[mc.Name][col.Name] = col.Type
		}
	}
	return out
}
