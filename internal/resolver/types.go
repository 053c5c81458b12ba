package resolver

import (
	"github.com/graphql-go/graphql"

	"relay-paging/internal/model"
)

func (r *Resolver) nodeInterfaceType() *graphql.Interface {
	r.mu.RLock()
	cached := r.nodeInterface
	r.mu.RUnlock()
	if cached != nil {
		return cached
	}

	nodeInterface := graphql.NewInterface(graphql.InterfaceConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		},
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			inst, ok := p.Value.(*model.Instance)
			if !ok || inst == nil || inst.Model() == nil {
				return nil
			}
			r.mu.RLock()
			objType := r.typeCache[inst.Model().Name]
			r.mu.RUnlock()
			return objType
		},
	})

	r.mu.Lock()
	if r.nodeInterface == nil {
		r.nodeInterface = nodeInterface
	}
	cached = r.nodeInterface
	r.mu.Unlock()

	return cached
}

// getPageInfoType returns the shared PageInfo GraphQL type (lazy-init).
func (r *Resolver) getPageInfoType() *graphql.Object {
	r.mu.RLock()
	cached := r.pageInfoType
	r.mu.RUnlock()
	if cached != nil {
		return cached
	}

	pageInfo := graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
			},
			"hasPreviousPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
			},
			"startCursor": &graphql.Field{
				Type: graphql.String,
			},
			"endCursor": &graphql.Field{
				Type: graphql.String,
			},
		},
	})

	r.mu.Lock()
	if r.pageInfoType == nil {
		r.pageInfoType = pageInfo
	}
	cached = r.pageInfoType
	r.mu.Unlock()

	return cached
}

// buildEdgeType builds the Edge type for a model (cached per model).
func (r *Resolver) buildEdgeType(m *model.Model, objType *graphql.Object) *graphql.Object {
	typeName := r.namer.EdgeTypeName(m.Name)

	r.mu.RLock()
	if cached, ok := r.edgeCache[typeName]; ok {
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName,
		Fields: graphql.Fields{
			"cursor": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
			"node": &graphql.Field{
				Type: graphql.NewNonNull(objType),
			},
		},
	})

	r.mu.Lock()
	if cached, ok := r.edgeCache[typeName]; ok {
		r.mu.Unlock()
		return cached
	}
	r.edgeCache[typeName] = edgeType
	r.mu.Unlock()

	return edgeType
}

// buildConnectionType builds the Connection type for a model (cached per model).
// Values are *connection.Connection and resolve through their json tags.
func (r *Resolver) buildConnectionType(m *model.Model, objType *graphql.Object) *graphql.Object {
	typeName := r.namer.ConnectionTypeName(m.Name)

	r.mu.RLock()
	if cached, ok := r.connectionCache[typeName]; ok {
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	edgeType := r.buildEdgeType(m, objType)
	connType := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName,
		Fields: graphql.Fields{
			"edges": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edgeType))),
			},
			"pageInfo": &graphql.Field{
				Type: graphql.NewNonNull(r.getPageInfoType()),
			},
			"totalCount": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
			},
		},
	})

	r.mu.Lock()
	if cached, ok := r.connectionCache[typeName]; ok {
		r.mu.Unlock()
		return cached
	}
	r.connectionCache[typeName] = connType
	r.mu.Unlock()

	return connType
}
