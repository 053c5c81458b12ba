package model

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Identifiable is implemented by values that expose a local identifier.
type Identifiable interface {
	ID() any
}

// Instance is one loaded row of a model together with any relations that
// have been loaded onto it.
type Instance struct {
	model  *Model
	fields map[string]any

	mu      sync.RWMutex
	related map[string][]*Instance
}

// NewInstance wraps a row of m. The fields map is owned by the instance afterwards.
func NewInstance(m *Model, fields map[string]any) *Instance {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Instance{
		model:   m,
		fields:  fields,
		related: make(map[string][]*Instance),
	}
}

// Model returns the model the instance belongs to.
func (i *Instance) Model() *Model {
	return i.model
}

// ID returns the value of the model's identifier column, or nil.
func (i *Instance) ID() any {
	if i == nil || i.model == nil {
		return nil
	}
	return i.fields[i.model.IDColumn]
}

// Get returns a column value.
func (i *Instance) Get(column string) (any, bool) {
	v, ok := i.fields[column]
	return v, ok
}

// Fields returns a shallow copy of the column values.
func (i *Instance) Fields() map[string]any {
	out := make(map[string]any, len(i.fields))
	for k, v := range i.fields {
		out[k] = v
	}
	return out
}

// Related returns the loaded values of a relation and whether it was loaded.
func (i *Instance) Related(name string) ([]*Instance, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	values, ok := i.related[name]
	return values, ok
}

// SetRelated stores the loaded values of a relation.
func (i *Instance) SetRelated(name string, values []*Instance) {
	if values == nil {
		values = []*Instance{}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.related[name] = values
}

// Paginate invokes the paginated accessor registered on the instance's model.
func (i *Instance) Paginate(ctx context.Context, accessor string, first int, after *int, args map[string]any) (Page, error) {
	fn, ok := i.model.Paginated(accessor)
	if !ok {
		return Page{}, fmt.Errorf("model %s has no paginated accessor %q", i.model.Name, accessor)
	}
	return fn(ctx, i, first, after, args)
}

func (i *Instance) String() string {
	if i == nil || i.model == nil {
		return "<nil instance>"
	}
	return fmt.Sprintf("%s(%v)", i.model.Name, i.ID())
}

// IDOf extracts the identifier of v. Instances, Identifiable values and
// map rows with an "id" key are supported. Nil, empty-string and numeric
// zero identifiers count as missing.
func IDOf(v any) (any, bool) {
	var id any
	switch val := v.(type) {
	case nil:
		return nil, false
	case *Instance:
		if val == nil {
			return nil, false
		}
		id = val.ID()
	case Identifiable:
		id = val.ID()
	case map[string]any:
		id = val[DefaultIDColumn]
	default:
		return nil, false
	}
	if isMissingID(id) {
		return nil, false
	}
	return id, true
}

// IDKey renders an identifier as a comparable key so values scanned as
// different Go types (int64, []byte, string) dedupe together.
func IDKey(id any) string {
	if b, ok := id.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(id)
}

func isMissingID(id any) bool {
	if id == nil {
		return true
	}
	rv := reflect.ValueOf(id)
	switch rv.Kind() {
	case reflect.String, reflect.Slice:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
