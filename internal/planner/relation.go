package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"relay-paging/internal/model"
	"relay-paging/internal/sqlutil"
)

// ParentKeyAlias is the select alias carrying the owner key of each child row.
const ParentKeyAlias = "__parent_key"

// RelationQuery selects the target rows of rel for the given owner key values.
// Each row also carries the owner key under ParentKeyAlias so the loader can
// attach it back to its parents.
func RelationQuery(rel model.Relation, target *model.Model, parentKeys []interface{}) (*Query, error) {
	if target == nil {
		return nil, fmt.Errorf("relation %s has no target model", rel.Name)
	}
	if len(parentKeys) == 0 {
		return nil, fmt.Errorf("relation %s query requires at least one parent key", rel.Name)
	}

	q := NewQuery(target)
	remote := rel.RemoteKey(target)
	var keyColumn string
	switch rel.Kind {
	case model.ManyToOne, model.OneToMany:
		keyColumn = sqlutil.QualifiedColumn(target.Table, remote)
	case model.ManyToMany:
		if rel.Junction == nil {
			return nil, fmt.Errorf("many-to-many relation %s requires a junction", rel.Name)
		}
		j := rel.Junction
		q.InnerJoin(fmt.Sprintf("%s ON %s = %s",
			sqlutil.QuoteIdentifier(j.Table),
			sqlutil.QualifiedColumn(j.Table, j.RemoteColumn),
			sqlutil.QualifiedColumn(target.Table, remote),
		))
		keyColumn = sqlutil.QualifiedColumn(j.Table, j.LocalColumn)
	default:
		return nil, fmt.Errorf("relation %s has unsupported kind %s", rel.Name, rel.Kind)
	}

	q.Column(sqlutil.Alias(keyColumn, ParentKeyAlias))
	q.Where(sq.Eq{keyColumn: parentKeys})
	return q, nil
}

// FindQuery selects a single row of m by identifier.
func FindQuery(m *model.Model, id interface{}) *Query {
	q := NewQuery(m)
	q.Where(sq.Eq{sqlutil.QualifiedColumn(m.Table, m.IDColumn): id})
	return q.Limit(1)
}
