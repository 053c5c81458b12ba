// Package eager loads relation paths onto model instances, one query per
// path segment, with caller-supplied modifiers applied to each segment query.
package eager

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"relay-paging/internal/dbexec"
	"relay-paging/internal/logging"
	"relay-paging/internal/model"
	"relay-paging/internal/observability"
	"relay-paging/internal/planner"
)

// Segment is one hop of a relation path and the modifiers for its query.
type Segment struct {
	Relation  string
	Modifiers []planner.Modifier
}

// Loader runs relation queries through an executor.
type Loader struct {
	exec     dbexec.QueryExecutor
	registry *model.Registry
	metrics  *observability.PagingMetrics
}

// Option configures a Loader.
type Option func(*Loader)

// WithMetrics records per-segment metrics.
func WithMetrics(m *observability.PagingMetrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a loader resolving relation targets through registry.
func NewLoader(exec dbexec.QueryExecutor, registry *model.Registry, opts ...Option) *Loader {
	l := &Loader{exec: exec, registry: registry}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the model registry the loader resolves relations against.
func (l *Loader) Registry() *model.Registry {
	return l.registry
}

type step struct {
	segment Segment
	rel     model.Relation
	target  *model.Model
}

// Load resolves every segment in order starting from root. After it returns,
// each instance reached along the path has the next segment's relation set.
// Traversal stops early, without querying, once a level yields no instances.
func (l *Loader) Load(ctx context.Context, root *model.Instance, segments []Segment) (err error) {
	if root == nil || root.Model() == nil {
		return fmt.Errorf("eager load requires a root instance")
	}
	steps, err := l.resolve(root.Model(), segments)
	if err != nil {
		return err
	}

	ctx, span := startSpan(ctx, "eager.load",
		attribute.String("eager.root", root.String()),
		attribute.Int("eager.segments", len(segments)),
	)
	defer func() { finishSpan(span, err) }()

	frontier := []*model.Instance{root}
	for depth, s := range steps {
		if len(frontier) == 0 {
			logging.FromContext(ctx).Debug("eager load stopped on empty level",
				"relation", s.segment.Relation,
				"depth", depth,
			)
			return nil
		}
		frontier, err = l.loadSegment(ctx, frontier, s, depth)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadRelated loads a single relation onto inst without modifiers.
func (l *Loader) LoadRelated(ctx context.Context, inst *model.Instance, relation string) ([]*model.Instance, error) {
	if err := l.Load(ctx, inst, []Segment{{Relation: relation}}); err != nil {
		return nil, err
	}
	values, _ := inst.Related(relation)
	return values, nil
}

// Find loads one instance of m by identifier. A missing row yields nil.
func (l *Loader) Find(ctx context.Context, m *model.Model, id interface{}) (*model.Instance, error) {
	q := planner.FindQuery(m, id)
	instances, _, err := l.query(ctx, q, m, false)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return instances[0], nil
}

// All loads every instance of m ordered by identifier, then by mods. Side
// queries registered by mods, such as a Range count, run after the rows.
func (l *Loader) All(ctx context.Context, m *model.Model, mods ...planner.Modifier) ([]*model.Instance, error) {
	q := planner.NewQuery(m).Apply(planner.OrderByID).Apply(mods...)
	instances, _, err := l.query(ctx, q, m, false)
	if err != nil {
		return nil, err
	}
	if q.HasSideQueries() {
		if err := q.RunSideQueries(ctx, l.exec); err != nil {
			return nil, err
		}
	}
	return instances, nil
}

func (l *Loader) resolve(owner *model.Model, segments []Segment) ([]step, error) {
	steps := make([]step, 0, len(segments))
	for _, seg := range segments {
		rel, ok := owner.Relation(seg.Relation)
		if !ok {
			return nil, fmt.Errorf("unknown relation %q on model %s", seg.Relation, owner.Name)
		}
		target, err := l.registry.Target(rel)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{segment: seg, rel: rel, target: target})
		owner = target
	}
	return steps, nil
}

func (l *Loader) loadSegment(ctx context.Context, frontier []*model.Instance, s step, depth int) (next []*model.Instance, err error) {
	started := time.Now()
	ctx, span := startSpan(ctx, "eager.segment",
		attribute.String("eager.relation", s.rel.Name),
		attribute.String("eager.relation_kind", s.rel.Kind.String()),
		attribute.Int("eager.depth", depth),
		attribute.Int("eager.parents", len(frontier)),
	)
	defer func() {
		finishSpan(span, err)
		l.metrics.RecordSegment(ctx, s.rel.Name, len(next), time.Since(started), err)
	}()

	keys := parentKeys(frontier, s.rel.LocalColumn)
	if len(keys) == 0 {
		for _, parent := range frontier {
			parent.SetRelated(s.rel.Name, nil)
		}
		return nil, nil
	}

	q, err := planner.RelationQuery(s.rel, s.target, keys)
	if err != nil {
		return nil, err
	}
	q.Apply(s.segment.Modifiers...)

	children, owners, err := l.query(ctx, q, s.target, true)
	if err != nil {
		return nil, err
	}
	if q.HasSideQueries() {
		if err := q.RunSideQueries(ctx, l.exec); err != nil {
			return nil, err
		}
	}

	grouped := make(map[string][]*model.Instance, len(keys))
	seen := make(map[string]struct{}, len(children))
	for i, child := range children {
		key := model.IDKey(owners[i])
		grouped[key] = append(grouped[key], child)
		idKey := model.IDKey(child.ID())
		if _, dup := seen[idKey]; !dup {
			seen[idKey] = struct{}{}
			next = append(next, child)
		}
	}
	for _, parent := range frontier {
		value, ok := parent.Get(s.rel.LocalColumn)
		if !ok || value == nil {
			parent.SetRelated(s.rel.Name, nil)
			continue
		}
		parent.SetRelated(s.rel.Name, grouped[model.IDKey(value)])
	}

	span.SetAttributes(attribute.Int("eager.rows", len(children)))
	logging.FromContext(ctx).Debug("eager segment loaded",
		"relation", s.rel.Name,
		"depth", depth,
		"parents", len(frontier),
		"rows", len(children),
	)
	return next, nil
}

// query runs q and scans rows of m. With parentKey set the trailing column is
// returned separately as the owner key of each row. Rows with an identifier
// already seen are folded into the first instance so shared children are one
// value per level.
func (l *Loader) query(ctx context.Context, q *planner.Query, m *model.Model, parentKey bool) ([]*model.Instance, []interface{}, error) {
	stmt, err := q.ToSQL()
	if err != nil {
		return nil, nil, err
	}
	rows, err := l.exec.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	width := len(m.Columns)
	if parentKey {
		width++
	}
	var (
		instances []*model.Instance
		owners    []interface{}
		byID      = make(map[string]*model.Instance)
	)
	for rows.Next() {
		values := make([]interface{}, width)
		dest := make([]interface{}, width)
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		fields := make(map[string]interface{}, len(m.Columns))
		for i, col := range m.Columns {
			fields[col] = normalizeValue(values[i])
		}
		inst := model.NewInstance(m, fields)
		if id := inst.ID(); id != nil {
			key := model.IDKey(id)
			if existing, ok := byID[key]; ok {
				inst = existing
			} else {
				byID[key] = inst
			}
		}
		instances = append(instances, inst)
		if parentKey {
			owners = append(owners, normalizeValue(values[width-1]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return instances, owners, nil
}

func parentKeys(frontier []*model.Instance, column string) []interface{} {
	keys := make([]interface{}, 0, len(frontier))
	seen := make(map[string]struct{}, len(frontier))
	for _, inst := range frontier {
		value, ok := inst.Get(column)
		if !ok || value == nil {
			continue
		}
		key := model.IDKey(value)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, value)
	}
	return keys
}

func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
