package planner

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deferred carries the total row count computed by a Range side query back to
// the caller. It is single-assignment and belongs to exactly one paged call.
type Deferred struct {
	pending atomic.Bool
	once    sync.Once
	done    chan struct{}
	count   int
	err     error
}

// NewDeferred creates an unresolved deferred count.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Pending reports whether a Range modifier has claimed the deferred value.
func (d *Deferred) Pending() bool {
	return d.pending.Load()
}

// Wait blocks until the count is resolved. A deferred value no Range modifier
// claimed yields zero immediately.
func (d *Deferred) Wait(ctx context.Context) (int, error) {
	if !d.Pending() {
		return 0, nil
	}
	select {
	case <-d.done:
		return d.count, d.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (d *Deferred) resolve(count int, err error) {
	d.once.Do(func() {
		d.count = count
		d.err = err
		close(d.done)
	})
}

// Range windows a query to first rows after skipping after rows, and
// registers a side query that resolves d with the number of rows the query
// matched before the window was applied.
func Range(first, after int, d *Deferred) Modifier {
	return func(q *Query) {
		if first < 0 {
			first = 0
		}
		counted := q.Clone()
		q.Limit(uint64(first))
		if after > 0 {
			q.Offset(uint64(after))
		}
		if d == nil {
			return
		}
		d.pending.Store(true)
		q.deferCount(counted, d)
	}
}
