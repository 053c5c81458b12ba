// Package fakedb provides a scripted dbexec.QueryExecutor for tests.
package fakedb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"relay-paging/internal/dbexec"
)

// Rows is a fixed result set.
type Rows struct {
	rows [][]any
	idx  int
	err  error
}

// NewRows returns a result set over rows.
func NewRows(rows ...[]any) *Rows {
	return &Rows{rows: rows}
}

func (r *Rows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return errors.New("scan called without advancing rows")
	}
	row := r.rows[r.idx-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan row has %d values, dest has %d", len(row), len(dest))
	}
	for i, value := range row {
		if err := assign(dest[i], value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rows) Err() error {
	return r.err
}

func (r *Rows) Close() error {
	return nil
}

func assign(dest any, value any) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = value
	case *int64:
		n, ok := value.(int)
		if !ok {
			v, ok := value.(int64)
			if !ok {
				return fmt.Errorf("cannot assign %T to %T", value, dest)
			}
			*d = v
			return nil
		}
		*d = int64(n)
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}

// Call is one recorded query.
type Call struct {
	SQL  string
	Args []any
}

// Route answers every query containing Contains with Rows.
type Route struct {
	Contains string
	Rows     [][]any
}

// Executor answers queries with Responses in call order. Calls past the end
// of Responses get an empty result set. Errors, when set at the same index,
// fail that call instead. When Routes is set, the first route whose Contains
// appears in the query answers it and Responses is ignored.
type Executor struct {
	Responses [][][]any
	Routes    []Route
	Errors    map[int]error

	mu    sync.Mutex
	calls []Call
}

// QueryContext records the call and returns the next scripted response.
func (e *Executor) QueryContext(_ context.Context, query string, args ...any) (dbexec.Rows, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := len(e.calls)
	e.calls = append(e.calls, Call{SQL: query, Args: args})
	if err, ok := e.Errors[idx]; ok {
		return nil, err
	}
	if len(e.Routes) > 0 {
		for _, route := range e.Routes {
			if strings.Contains(query, route.Contains) {
				return &Rows{rows: route.Rows}, nil
			}
		}
		return &Rows{}, nil
	}
	if idx >= len(e.Responses) {
		return &Rows{}, nil
	}
	return &Rows{rows: e.Responses[idx]}, nil
}

// Calls returns the queries executed so far.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}
