package relay

import (
	"context"
	"fmt"

	"relay-paging/internal/model"
)

// SingleRelationship returns an accessor for the named relation of a parent.
// Values already loaded onto the parent are returned as is, including an
// empty to-many result; otherwise the relation is loaded lazily. A loaded but
// missing many-to-one target is looked up again. Many-to-one relations resolve to one instance
// (or nil), all others to a slice.
func SingleRelationship(loader Loader, name string) func(ctx context.Context, parent *model.Instance) (any, error) {
	return func(ctx context.Context, parent *model.Instance) (any, error) {
		if parent == nil || parent.Model() == nil {
			return nil, fmt.Errorf("relation %s requires a parent instance", name)
		}
		rel, ok := parent.Model().Relation(name)
		if !ok {
			return nil, fmt.Errorf("unknown relation %q on model %s", name, parent.Model().Name)
		}

		values, loaded := parent.Related(name)
		if !loaded || (rel.IsSingle() && len(values) == 0) {
			var err error
			values, err = loader.LoadRelated(ctx, parent, name)
			if err != nil {
				return nil, err
			}
		}

		if rel.IsSingle() {
			if len(values) == 0 {
				return nil, nil
			}
			return values[0], nil
		}
		return values, nil
	}
}
