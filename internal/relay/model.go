package relay

import (
	"context"

	"relay-paging/internal/model"
	"relay-paging/internal/naming"
	"relay-paging/internal/planner"
)

// DefaultFirst is the window size used when a caller leaves first unset.
const DefaultFirst = 10

// Model is a model enhanced with paged relation queries and context-carrying
// query entry points.
type Model struct {
	*model.Model

	loader   Loader
	maxFirst int
	opts     []Option
}

// EnhanceOption configures Enhance.
type EnhanceOption func(*Model)

// WithMaxFirst caps the window size of every query issued through the model.
func WithMaxFirst(n int) EnhanceOption {
	return func(m *Model) {
		m.maxFirst = n
	}
}

// WithDefaultOptions applies opts to every paged query issued through the model.
func WithDefaultOptions(opts ...Option) EnhanceOption {
	return func(m *Model) {
		m.opts = append(m.opts, opts...)
	}
}

// Enhance wraps m and installs a paginated accessor for each to-many relation,
// named by naming.PaginatedAccessor (tags -> paginatedTags).
func Enhance(m *model.Model, loader Loader, opts ...EnhanceOption) *Model {
	rm := &Model{Model: m, loader: loader}
	for _, opt := range opts {
		opt(rm)
	}
	for _, rel := range m.Relations() {
		if rel.IsSingle() {
			continue
		}
		relation := rel.Name
		m.SetPaginated(naming.PaginatedAccessor(relation), func(ctx context.Context, inst *model.Instance, first int, after *int, _ map[string]any) (model.Page, error) {
			offset := 0
			if after != nil {
				offset = *after
			}
			return rm.PagedRelationQuery(ctx, inst, relation, first, offset)
		})
	}
	return rm
}

// PagedRelationQuery pages a relation path of inst. A negative first selects
// DefaultFirst.
func (m *Model) PagedRelationQuery(ctx context.Context, inst *model.Instance, path string, first, after int, opts ...Option) (model.Page, error) {
	first = m.window(first)
	all := append(append([]Option(nil), m.opts...), opts...)
	return PagedRelationQuery(ctx, m.loader, inst, path, first, after, all...)
}

// Find loads one instance by identifier.
func (m *Model) Find(ctx context.Context, id interface{}) (*model.Instance, error) {
	return m.loader.Find(ctx, m.Model, id)
}

// All loads every instance ordered by identifier.
func (m *Model) All(ctx context.Context, mods ...planner.Modifier) ([]*model.Instance, error) {
	return m.loader.All(ctx, m.Model, mods...)
}

func (m *Model) window(first int) int {
	if first < 0 {
		first = DefaultFirst
	}
	if m.maxFirst > 0 && first > m.maxFirst {
		first = m.maxFirst
	}
	return first
}
