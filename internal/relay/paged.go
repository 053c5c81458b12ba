// Package relay pages through relation paths of model instances and exposes
// the accessors a Relay-style GraphQL layer resolves against.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"relay-paging/internal/eager"
	"relay-paging/internal/logging"
	"relay-paging/internal/model"
	"relay-paging/internal/observability"
	"relay-paging/internal/planner"
)

// Loader is the persistence capability the engine needs.
type Loader interface {
	Load(ctx context.Context, root *model.Instance, segments []eager.Segment) error
	LoadRelated(ctx context.Context, inst *model.Instance, relation string) ([]*model.Instance, error)
	Find(ctx context.Context, m *model.Model, id interface{}) (*model.Instance, error)
	All(ctx context.Context, m *model.Model, mods ...planner.Modifier) ([]*model.Instance, error)
}

type options struct {
	filter  planner.Modifier
	orderBy planner.Modifier
	metrics *observability.PagingMetrics
}

// Option customizes a paged relation query.
type Option func(*options)

// WithFilter adds a predicate applied to every segment query. Filters that
// only make sense for one model should check q.Table() or use planner.ForTable.
func WithFilter(filter planner.Modifier) Option {
	return func(o *options) {
		if filter != nil {
			o.filter = filter
		}
	}
}

// WithOrderBy replaces the default identifier ordering of every segment.
func WithOrderBy(orderBy planner.Modifier) Option {
	return func(o *options) {
		if orderBy != nil {
			o.orderBy = orderBy
		}
	}
}

// WithMetrics records the query on m.
func WithMetrics(m *observability.PagingMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// PagedRelationQuery loads one window of the instances reachable from inst
// along a dot-separated relation path.
//
// Every segment is ordered, has inst itself excluded when it targets inst's
// table, and is filtered. The final segment is windowed to first rows after
// skipping after rows. Results are flattened segment by segment and
// deduplicated by identifier in first-seen order. Total is the final
// segment's row count before the window, or zero when that segment never ran.
func PagedRelationQuery(ctx context.Context, loader Loader, inst *model.Instance, path string, first, after int, opts ...Option) (page model.Page, err error) {
	o := options{filter: planner.Noop, orderBy: planner.OrderByID}
	for _, opt := range opts {
		opt(&o)
	}

	names, err := splitPath(path)
	if err != nil {
		return model.Page{}, err
	}
	if after < 0 {
		return model.Page{}, fmt.Errorf("after must be a non-negative offset, got %d", after)
	}

	started := time.Now()
	ctx, span := otel.Tracer("relay-paging/relay").Start(ctx, "relay.paged_relation_query")
	span.SetAttributes(
		attribute.String("relay.path", path),
		attribute.Int("relay.first", first),
		attribute.Int("relay.after", after),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("relay.results", len(page.Results)),
				attribute.Int("relay.total", page.Total),
			)
		}
		span.End()
		o.metrics.RecordPagedQuery(ctx, path, len(page.Results), page.Total, time.Since(started), err)
	}()

	deferred := planner.NewDeferred()
	segments := make([]eager.Segment, len(names))
	for i, name := range names {
		mods := []planner.Modifier{o.orderBy, planner.ExcludeSelf(inst), o.filter}
		if i == len(names)-1 {
			mods = append(mods, planner.Range(first, after, deferred))
		}
		segments[i] = eager.Segment{Relation: name, Modifiers: mods}
	}

	// Windowed relations are loaded onto a copy so inst keeps its full
	// relations for later accessors.
	root := model.NewInstance(inst.Model(), inst.Fields())
	if err := loader.Load(ctx, root, segments); err != nil {
		return model.Page{}, err
	}

	results := flatten(root, names)
	total, err := deferred.Wait(ctx)
	if err != nil {
		return model.Page{}, err
	}

	logging.FromContext(ctx).Debug("paged relation query",
		"path", path,
		"first", first,
		"after", after,
		"results", len(results),
		"total", total,
	)
	return model.Page{Results: results, Total: total}, nil
}

// flatten walks names from root, concatenating each level's related values
// and dropping identifiers already seen at that level.
func flatten(root *model.Instance, names []string) []*model.Instance {
	frontier := []*model.Instance{root}
	for _, name := range names {
		var next []*model.Instance
		seen := make(map[string]struct{})
		for _, item := range frontier {
			related, _ := item.Related(name)
			for _, child := range related {
				key := model.IDKey(child.ID())
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				next = append(next, child)
			}
		}
		frontier = next
	}
	if frontier == nil {
		return []*model.Instance{}
	}
	return frontier
}

func splitPath(path string) ([]string, error) {
	names := strings.Split(path, ".")
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid relation path %q", path)
		}
	}
	return names, nil
}
