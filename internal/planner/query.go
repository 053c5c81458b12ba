// The eager loader runs one Query per relation segment. A Query wraps a
// squirrel select builder together with its ordering and window so modifiers
// can reshape it and a count can be taken from a clone without the window.

package planner

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"relay-paging/internal/dbexec"
	"relay-paging/internal/model"
	"relay-paging/internal/sqlutil"
)

// SQLQuery is a rendered statement with its positional arguments.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// Modifier reshapes a query before it is executed.
type Modifier func(q *Query)

var allowedOperators = map[string]struct{}{
	"=": {}, "!=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"LIKE": {}, "NOT LIKE": {},
}

type sideCount struct {
	query    SQLQuery
	deferred *Deferred
}

// Query is a select against one model's table.
type Query struct {
	model   *model.Model
	builder sq.SelectBuilder
	orderBy []string
	limit   *uint64
	offset  *uint64
	side    []sideCount
	err     error
}

// NewQuery starts a select of every column of m.
func NewQuery(m *model.Model) *Query {
	return &Query{
		model:   m,
		builder: sq.Select(columnNames(m)...).From(sqlutil.QuoteIdentifier(m.Table)),
	}
}

// Model returns the model the query selects.
func (q *Query) Model() *model.Model {
	return q.model
}

// Table returns the table the query selects from.
func (q *Query) Table() string {
	return q.model.Table
}

// Column adds an extra select expression.
func (q *Query) Column(expr string) *Query {
	q.builder = q.builder.Column(expr)
	return q
}

// InnerJoin adds an INNER JOIN clause.
func (q *Query) InnerJoin(join string, args ...interface{}) *Query {
	q.builder = q.builder.InnerJoin(join, args...)
	return q
}

// Where adds a raw predicate; see squirrel's SelectBuilder.Where.
func (q *Query) Where(pred interface{}, args ...interface{}) *Query {
	q.builder = q.builder.Where(pred, args...)
	return q
}

// WhereColumn adds "<column> <op> ?" against the query table.
// Columns may be qualified as "table.column".
func (q *Query) WhereColumn(column, op string, value interface{}) *Query {
	op = strings.ToUpper(strings.TrimSpace(op))
	if _, ok := allowedOperators[op]; !ok {
		q.setErr(fmt.Errorf("unsupported operator %q", op))
		return q
	}
	q.builder = q.builder.Where(fmt.Sprintf("%s %s ?", q.qualify(column), op), value)
	return q
}

// OrderBy appends an ordering term. direction is ASC or DESC (case-insensitive,
// empty means ASC).
func (q *Query) OrderBy(column, direction string) *Query {
	direction = strings.ToUpper(strings.TrimSpace(direction))
	if direction == "" {
		direction = "ASC"
	}
	if direction != "ASC" && direction != "DESC" {
		q.setErr(fmt.Errorf("invalid order direction %q", direction))
		return q
	}
	q.orderBy = append(q.orderBy, q.qualify(column)+" "+direction)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n uint64) *Query {
	q.limit = &n
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n uint64) *Query {
	q.offset = &n
	return q
}

// Clone copies the query. Pending side queries are not carried over.
func (q *Query) Clone() *Query {
	clone := &Query{
		model:   q.model,
		builder: q.builder,
		orderBy: append([]string(nil), q.orderBy...),
		err:     q.err,
	}
	if q.limit != nil {
		n := *q.limit
		clone.limit = &n
	}
	if q.offset != nil {
		n := *q.offset
		clone.offset = &n
	}
	return clone
}

// Apply runs modifiers in order.
func (q *Query) Apply(mods ...Modifier) *Query {
	for _, mod := range mods {
		if mod != nil {
			mod(q)
		}
	}
	return q
}

// ToSQL renders the query with its ordering and window.
func (q *Query) ToSQL() (SQLQuery, error) {
	if q.err != nil {
		return SQLQuery{}, q.err
	}
	builder := q.builder
	if len(q.orderBy) > 0 {
		builder = builder.OrderBy(q.orderBy...)
	}
	if q.limit != nil {
		builder = builder.Limit(*q.limit)
	}
	if q.offset != nil {
		builder = builder.Offset(*q.offset)
	}
	return render(builder)
}

// CountSQL renders a count of the rows the query matches, ignoring its
// ordering and window.
func (q *Query) CountSQL() (SQLQuery, error) {
	if q.err != nil {
		return SQLQuery{}, q.err
	}
	base, err := render(q.builder)
	if err != nil {
		return SQLQuery{}, err
	}
	return buildCountFromBaseSQL(base), nil
}

// HasSideQueries reports whether running the query also owes deferred counts.
func (q *Query) HasSideQueries() bool {
	return len(q.side) > 0
}

// RunSideQueries executes the count side queries registered on q and resolves
// their deferred values. The first failure is returned and also delivered to
// its deferred value.
func (q *Query) RunSideQueries(ctx context.Context, exec dbexec.QueryExecutor) error {
	for _, s := range q.side {
		count, err := dbexec.QueryCount(ctx, exec, s.query.SQL, s.query.Args...)
		s.deferred.resolve(count, err)
		if err != nil {
			return err
		}
	}
	q.side = nil
	return nil
}

func (q *Query) deferCount(counted *Query, d *Deferred) {
	countSQL, err := counted.CountSQL()
	if err != nil {
		q.setErr(err)
		return
	}
	q.side = append(q.side, sideCount{query: countSQL, deferred: d})
}

func (q *Query) setErr(err error) {
	if q.err == nil {
		q.err = err
	}
}

func (q *Query) qualify(column string) string {
	if table, col, ok := strings.Cut(column, "."); ok {
		return sqlutil.QualifiedColumn(table, col)
	}
	return sqlutil.QualifiedColumn(q.model.Table, column)
}

func render(builder sq.SelectBuilder) (SQLQuery, error) {
	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

func buildCountFromBaseSQL(base SQLQuery) SQLQuery {
	return SQLQuery{
		SQL:  fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS __count", base.SQL),
		Args: append([]interface{}(nil), base.Args...),
	}
}

func columnNames(m *model.Model) []string {
	names := make([]string, 0, len(m.Columns))
	for _, col := range m.Columns {
		names = append(names, sqlutil.QualifiedColumn(m.Table, col))
	}
	return names
}
