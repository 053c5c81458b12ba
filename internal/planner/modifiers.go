package planner

import "relay-paging/internal/model"

// OrderByID orders a segment by its own identifier, ascending.
func OrderByID(q *Query) {
	q.OrderBy(q.Model().IDColumn, "ASC")
}

// ExcludeSelf drops root from any segment whose target table is root's table.
func ExcludeSelf(root *model.Instance) Modifier {
	return func(q *Query) {
		if root == nil || root.Model() == nil {
			return
		}
		if q.Table() != root.Model().Table {
			return
		}
		id, ok := model.IDOf(root)
		if !ok {
			return
		}
		q.WhereColumn(q.Model().IDColumn, "!=", id)
	}
}

// ForTable applies mod only to queries selecting from table. Other segments
// fall back to otherwise, which may be nil.
func ForTable(table string, mod, otherwise Modifier) Modifier {
	return func(q *Query) {
		switch {
		case q.Table() == table:
			mod(q)
		case otherwise != nil:
			otherwise(q)
		}
	}
}

// Noop leaves the query unchanged.
func Noop(*Query) {}
