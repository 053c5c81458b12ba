// Package resolver builds an executable GraphQL schema over registered models.
// Every model becomes a Node type with a global id, its columns, its relations
// and a Relay connection per to-many relation. The root query exposes a node
// lookup, a per-model lookup by global id and a per-model list connection.
package resolver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/graphql-go/graphql"
	"go.opentelemetry.io/otel/attribute"

	"relay-paging/internal/connection"
	"relay-paging/internal/cursor"
	"relay-paging/internal/model"
	"relay-paging/internal/naming"
	"relay-paging/internal/nodeid"
	"relay-paging/internal/observability"
	"relay-paging/internal/planner"
	"relay-paging/internal/relay"
)

// Config controls schema generation.
type Config struct {
	// DefaultFirst is the window used when a connection field omits first.
	DefaultFirst int
	// MaxFirst caps first on every connection field. Zero means no cap.
	MaxFirst int
	// ColumnTypes maps model name to column name to a scalar kind
	// (string, int, float or boolean). Unlisted columns are strings.
	ColumnTypes map[string]map[string]string
	Naming      naming.Config
	Metrics     *observability.PagingMetrics
}

// Resolver builds the schema and owns the GraphQL types it creates.
type Resolver struct {
	loader          relay.Loader
	registry        *model.Registry
	models          map[string]*relay.Model
	namer           *naming.Namer
	cfg             Config
	typeCache       map[string]*graphql.Object
	edgeCache       map[string]*graphql.Object
	connectionCache map[string]*graphql.Object
	pageInfoType    *graphql.Object
	nodeInterface   *graphql.Interface
	mu              sync.RWMutex
}

// NewResolver enhances every registered model with paginated relation
// accessors and prepares a resolver over them.
func NewResolver(loader relay.Loader, registry *model.Registry, cfg Config) *Resolver {
	if cfg.DefaultFirst <= 0 {
		cfg.DefaultFirst = relay.DefaultFirst
	}
	if cfg.MaxFirst > 0 && cfg.DefaultFirst > cfg.MaxFirst {
		cfg.DefaultFirst = cfg.MaxFirst
	}
	r := &Resolver{
		loader:          loader,
		registry:        registry,
		models:          make(map[string]*relay.Model),
		namer:           naming.New(cfg.Naming, nil),
		cfg:             cfg,
		typeCache:       make(map[string]*graphql.Object),
		edgeCache:       make(map[string]*graphql.Object),
		connectionCache: make(map[string]*graphql.Object),
	}
	for _, m := range registry.Models() {
		r.models[m.Name] = relay.Enhance(m, loader,
			relay.WithMaxFirst(cfg.MaxFirst),
			relay.WithDefaultOptions(relay.WithMetrics(cfg.Metrics)),
		)
	}
	return r
}

// BuildSchema builds an executable schema for registry backed by loader.
func BuildSchema(registry *model.Registry, loader relay.Loader, cfg Config) (graphql.Schema, error) {
	return NewResolver(loader, registry, cfg).BuildGraphQLSchema()
}

// BuildGraphQLSchema constructs the executable schema.
func (r *Resolver) BuildGraphQLSchema() (graphql.Schema, error) {
	if err := r.registry.Validate(); err != nil {
		return graphql.Schema{}, err
	}
	r.namer.Reset()

	queryFields := graphql.Fields{
		"node": &graphql.Field{
			Type:        r.nodeInterfaceType(),
			Description: "Fetches any object by its global ID.",
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: r.makeNodeResolver(),
		},
	}
	r.namer.RegisterQueryField("node", "node")
	for _, m := range r.registry.Models() {
		queryFields = r.addModelQueries(queryFields, m)
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	})
}

func (r *Resolver) addModelQueries(fields graphql.Fields, m *model.Model) graphql.Fields {
	objType := r.buildGraphQLType(m)

	lookup := r.namer.RegisterQueryField(r.namer.LookupQueryField(m.Name), m.Name)
	fields[lookup] = &graphql.Field{
		Type: objType,
		Args: graphql.FieldConfigArgument{
			"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
		},
		Resolve: r.makeLookupResolver(m),
	}

	list := r.namer.RegisterQueryField(r.namer.ListQueryField(m.Table), m.Name)
	fields[list] = &graphql.Field{
		Type:    graphql.NewNonNull(r.buildConnectionType(m, objType)),
		Args:    connectionFieldArgs(),
		Resolve: r.makeListResolver(m),
	}
	return fields
}

// buildGraphQLType builds the object type for a model (cached per model).
func (r *Resolver) buildGraphQLType(m *model.Model) *graphql.Object {
	r.mu.RLock()
	cached, ok := r.typeCache[m.Name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	// Fields are built lazily so mutually related models can reference each other.
	objType := graphql.NewObject(graphql.ObjectConfig{
		Name: m.Name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return r.buildFieldsForModel(m)
		}),
		Interfaces: []*graphql.Interface{r.nodeInterfaceType()},
	})

	r.mu.Lock()
	if cached, ok := r.typeCache[m.Name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.typeCache[m.Name] = objType
	r.mu.Unlock()

	return objType
}

func (r *Resolver) buildFieldsForModel(m *model.Model) graphql.Fields {
	fields := graphql.Fields{
		"id": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.ID),
			Resolve: IDField(m.Name),
		},
	}
	r.namer.RegisterField(m.Name, "id", m.IDColumn)

	for _, col := range m.Columns {
		if col == m.IDColumn {
			continue
		}
		name := r.namer.RegisterField(m.Name, r.namer.FieldName(col), col)
		fields[name] = &graphql.Field{
			Type:    r.columnType(m.Name, col),
			Resolve: columnResolver(col),
		}
	}

	for _, rel := range m.Relations() {
		target, err := r.registry.Target(rel)
		if err != nil {
			// Validate rejects these before the schema is built.
			continue
		}
		targetType := r.buildGraphQLType(target)
		name := r.namer.RegisterField(m.Name, r.namer.FieldName(rel.Name), rel.Name)

		if rel.IsSingle() {
			// Nullable: the foreign key may be null or point at a missing row.
			fields[name] = &graphql.Field{
				Type:    targetType,
				Resolve: SingleRelationshipField(r.loader, rel.Name),
			}
			continue
		}

		fields[name] = &graphql.Field{
			Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(targetType))),
			Resolve: SingleRelationshipField(r.loader, rel.Name),
		}
		connName := r.namer.RegisterField(m.Name, r.namer.ConnectionFieldName(rel.Name), rel.Name)
		fields[connName] = &graphql.Field{
			Type:    graphql.NewNonNull(r.buildConnectionType(target, targetType)),
			Args:    connectionFieldArgs(),
			Resolve: ConnectionField(rel.Name, r.cfg.DefaultFirst, r.cfg.MaxFirst),
		}
	}
	return fields
}

func (r *Resolver) columnType(modelName, column string) graphql.Output {
	kind := strings.ToLower(strings.TrimSpace(r.cfg.ColumnTypes[modelName][column]))
	switch kind {
	case "int", "integer", "bigint":
		return graphql.Int
	case "float", "double", "decimal":
		return graphql.Float
	case "bool", "boolean":
		return graphql.Boolean
	default:
		return graphql.String
	}
}

func connectionFieldArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"first": &graphql.ArgumentConfig{
			Type: graphql.Int,
		},
		"after": &graphql.ArgumentConfig{
			Type: graphql.String,
		},
	}
}

func (r *Resolver) makeLookupResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		globalID, _ := p.Args["id"].(string)
		ctx, span := startResolverSpan(p.Context, "graphql.resolve.lookup",
			attribute.String("graphql.model", m.Name),
		)
		defer span.End()

		localID, ok, err := nodeid.FromGlobalID(m.Name, globalID)
		if err != nil {
			finishResolverSpan(span, err, "")
			return nil, err
		}
		if !ok {
			finishResolverSpan(span, nil, "empty")
			return nil, nil
		}
		inst, err := r.models[m.Name].Find(ctx, localID)
		finishResolverSpan(span, err, "")
		if err != nil || inst == nil {
			return nil, err
		}
		return inst, nil
	}
}

func (r *Resolver) makeNodeResolver() graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		globalID, _ := p.Args["id"].(string)
		typeName, _ := nodeid.Decode(globalID)
		rm, ok := r.models[typeName]
		if !ok {
			return nil, fmt.Errorf("Identifier %s is not valid.", globalID)
		}
		return r.makeLookupResolver(rm.Model)(p)
	}
}

// makeListResolver lists every row of a model. Without window arguments the
// full set is mapped; otherwise the window is applied in SQL and the total
// comes from the count side query.
func (r *Resolver) makeListResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx, span := startResolverSpan(p.Context, "graphql.resolve.list",
			attribute.String("graphql.model", m.Name),
		)
		defer span.End()

		rm := r.models[m.Name]
		_, hasFirst := p.Args["first"]
		_, hasAfter := p.Args["after"]
		if !hasFirst && !hasAfter {
			all, err := rm.All(ctx)
			if err != nil {
				finishResolverSpan(span, err, "")
				return nil, err
			}
			conn, err := connection.Resolve(connection.Collection(all, &connection.Args{First: len(all)}))
			finishResolverSpan(span, err, "")
			return conn, err
		}

		args := connectionArgs(p.Args, r.cfg.DefaultFirst, r.cfg.MaxFirst)
		after, _, err := cursor.AfterOffset(args.After)
		if err != nil {
			finishResolverSpan(span, err, "")
			return nil, err
		}
		total := planner.NewDeferred()
		results, err := rm.All(ctx, planner.Range(args.First, after, total))
		if err != nil {
			finishResolverSpan(span, err, "")
			return nil, err
		}
		count, err := total.Wait(ctx)
		if err != nil {
			finishResolverSpan(span, err, "")
			return nil, err
		}
		if results == nil {
			results = []*model.Instance{}
		}
		span.SetAttributes(attribute.Int("graphql.list.total", count))
		conn, err := connection.Resolve(connection.Enveloped(&model.Page{Results: results, Total: count}, &args))
		finishResolverSpan(span, err, "")
		return conn, err
	}
}
