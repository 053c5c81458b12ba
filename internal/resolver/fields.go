package resolver

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"relay-paging/internal/connection"
	"relay-paging/internal/model"
	"relay-paging/internal/nodeid"
	"relay-paging/internal/relay"
)

// IDField resolves the global ID of the source instance. An empty modelName
// uses the instance's own model name.
func IDField(modelName string) graphql.FieldResolveFn {
	wrap := nodeid.IDWrapper(modelName)
	return func(p graphql.ResolveParams) (interface{}, error) {
		return wrap(p.Source)
	}
}

// SingleRelationshipField resolves a relation of the source instance, loading
// it when it has not been loaded yet.
func SingleRelationshipField(loader relay.Loader, name string) graphql.FieldResolveFn {
	accessor := relay.SingleRelationship(loader, name)
	return func(p graphql.ResolveParams) (interface{}, error) {
		inst, err := sourceInstance(p)
		if err != nil {
			return nil, err
		}
		return accessor(p.Context, inst)
	}
}

// ConnectionField resolves a Relay connection over a relation of the source
// instance. A missing first argument selects defaultFirst; maxFirst, when
// positive, caps it.
func ConnectionField(relation string, defaultFirst, maxFirst int) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		resolve, err := connection.Wrap(connection.Relation(relation))
		if err != nil {
			return nil, err
		}
		parent, ok := p.Source.(connection.Paginator)
		if !ok || parent == nil {
			return nil, fmt.Errorf("connection %s requires a paginated parent, got %T", relation, p.Source)
		}
		return resolve(p.Context, parent, connectionArgs(p.Args, defaultFirst, maxFirst))
	}
}

func columnResolver(column string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		inst, err := sourceInstance(p)
		if err != nil {
			return nil, err
		}
		value, _ := inst.Get(column)
		return value, nil
	}
}

func sourceInstance(p graphql.ResolveParams) (*model.Instance, error) {
	inst, ok := p.Source.(*model.Instance)
	if !ok || inst == nil {
		return nil, fmt.Errorf("field %s expects a model instance, got %T", p.Info.FieldName, p.Source)
	}
	return inst, nil
}

// connectionArgs splits GraphQL field arguments into the window and the rest.
func connectionArgs(raw map[string]interface{}, defaultFirst, maxFirst int) connection.Args {
	args := connection.Args{First: defaultFirst, Extra: make(map[string]any)}
	for key, value := range raw {
		switch key {
		case "first":
			if n, ok := optionalIntArg(raw, key); ok {
				args.First = n
			}
		case "after":
			if s, ok := value.(string); ok {
				args.After = s
			}
		default:
			args.Extra[key] = value
		}
	}
	if args.First < 0 {
		args.First = 0
	}
	if maxFirst > 0 && args.First > maxFirst {
		args.First = maxFirst
	}
	return args
}

func optionalIntArg(args map[string]interface{}, key string) (int, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
