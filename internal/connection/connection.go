// Package connection maps pages of nodes onto the Relay connection shape.
//
// A Source names where the nodes come from: a paginated relation accessor on
// the parent, a complete in-memory collection, or an already windowed page
// with an explicit total. Cursors are positional: the edge at index k of a
// window that starts after offset n gets the cursor for offset n+k.
package connection

import (
	"context"
	"errors"
	"fmt"

	"relay-paging/internal/cursor"
	"relay-paging/internal/model"
	"relay-paging/internal/naming"
)

// ErrInvalidSource is returned for any source that is not one of the
// supported shapes.
var ErrInvalidSource = errors.New("Not a valid argument: field. Must be a string or an object containing an array (or a collectionInfo with results and total) and args keys.")

// Args are the Relay window arguments of a connection field.
type Args struct {
	First int
	After string
	// Extra carries every other field argument through to the accessor.
	Extra map[string]any
}

// Map returns the arguments as a single map, the way a GraphQL resolver
// receives them.
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a.Extra)+2)
	for k, v := range a.Extra {
		out[k] = v
	}
	out["first"] = a.First
	if a.After != "" {
		out["after"] = a.After
	}
	return out
}

// PageInfo describes the position of a window in the full result set.
type PageInfo struct {
	HasPreviousPage bool    `json:"hasPreviousPage"`
	HasNextPage     bool    `json:"hasNextPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// Edge pairs a node with its cursor.
type Edge struct {
	Cursor string `json:"cursor"`
	Node   any    `json:"node"`
}

// Connection is one window of a paged result.
type Connection struct {
	PageInfo   PageInfo `json:"pageInfo"`
	Edges      []Edge   `json:"edges"`
	TotalCount int      `json:"totalCount"`
}

// Paginator is a parent exposing named paginated accessors.
// *model.Instance implements it.
type Paginator interface {
	Paginate(ctx context.Context, accessor string, first int, after *int, args map[string]any) (model.Page, error)
}

// Resolver produces a connection for a parent and its field arguments.
type Resolver func(ctx context.Context, parent Paginator, args Args) (*Connection, error)

// Source is where the nodes of a connection come from. The only
// implementations are the ones returned by Relation, Collection and Enveloped.
type Source interface {
	source()
}

type relationSource struct {
	field string
}

type collectionSource struct {
	items []any
	args  *Args
}

type envelopedSource struct {
	page *model.Page
	args *Args
}

func (relationSource) source()   {}
func (collectionSource) source() {}
func (envelopedSource) source()  {}

// Relation pages the named relation through the parent's paginated accessor.
func Relation(field string) Source {
	return relationSource{field: field}
}

// Collection uses items as the complete result set. Every item becomes an
// edge and the total is len(items).
func Collection[T any](items []T, args *Args) Source {
	if items == nil {
		return collectionSource{args: args}
	}
	nodes := make([]any, len(items))
	for i, item := range items {
		nodes[i] = item
	}
	return collectionSource{items: nodes, args: args}
}

// Enveloped uses a page that was already windowed to args.
func Enveloped(page *model.Page, args *Args) Source {
	return envelopedSource{page: page, args: args}
}

// Wrap returns a resolver for src. In-memory sources are mapped immediately,
// so their errors surface here and the returned resolver ignores its inputs.
func Wrap(src Source) (Resolver, error) {
	if s, ok := src.(relationSource); ok {
		if s.field == "" {
			return nil, ErrInvalidSource
		}
		return s.resolve, nil
	}
	conn, err := Resolve(src)
	if err != nil {
		return nil, err
	}
	return func(context.Context, Paginator, Args) (*Connection, error) {
		return conn, nil
	}, nil
}

// Resolve maps an in-memory source to a connection. Relation sources need a
// parent and are rejected.
func Resolve(src Source) (*Connection, error) {
	switch s := src.(type) {
	case collectionSource:
		if s.items == nil || s.args == nil {
			return nil, ErrInvalidSource
		}
		return build(s.items, *s.args, len(s.items))
	case envelopedSource:
		if s.page == nil || s.page.Results == nil || s.args == nil {
			return nil, ErrInvalidSource
		}
		nodes := make([]any, len(s.page.Results))
		for i, inst := range s.page.Results {
			nodes[i] = inst
		}
		return build(nodes, *s.args, s.page.Total)
	default:
		return nil, ErrInvalidSource
	}
}

func (s relationSource) resolve(ctx context.Context, parent Paginator, args Args) (*Connection, error) {
	if parent == nil {
		return nil, fmt.Errorf("connection %s requires a parent", s.field)
	}
	offset, present, err := cursor.AfterOffset(args.After)
	if err != nil {
		return nil, err
	}
	var after *int
	if present {
		after = &offset
	}
	page, err := parent.Paginate(ctx, naming.PaginatedAccessor(s.field), args.First, after, args.Map())
	if err != nil {
		return nil, err
	}
	nodes := make([]any, len(page.Results))
	for i, inst := range page.Results {
		nodes[i] = inst
	}
	return build(nodes, args, page.Total)
}

func build(nodes []any, args Args, total int) (*Connection, error) {
	after, _, err := cursor.AfterOffset(args.After)
	if err != nil {
		return nil, err
	}
	first := args.First
	if first < 0 {
		first = 0
	}

	edges := make([]Edge, len(nodes))
	for k, node := range nodes {
		if _, ok := model.IDOf(node); !ok {
			return nil, fmt.Errorf("Came across node without an ID: %v", node)
		}
		edges[k] = Edge{Cursor: cursor.OffsetToCursor(after + k), Node: node}
	}

	info := PageInfo{
		HasPreviousPage: after != 0,
		HasNextPage:     total > after+first,
	}
	if len(edges) > 0 {
		start, end := edges[0].Cursor, edges[len(edges)-1].Cursor
		info.StartCursor = &start
		info.EndCursor = &end
	}
	return &Connection{PageInfo: info, Edges: edges, TotalCount: total}, nil
}
