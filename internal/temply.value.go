package internal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sourcegraph/conc/panics"
)

// Pending is a value that is still being computed. The executor resolves
// pending values before they are used: inline on the blocking path,
// as a suspension point on the suspend-capable path.
type Pending interface {
	// Await blocks until the value is ready or ctx is done.
	Await(ctx context.Context) (any, error)
}

// Thunk is a goroutine-backed Pending. The producer function runs once,
// in its own goroutine, started at construction time. A panic in the
// producer is recovered and surfaced as the thunk's error.
type Thunk struct {
	done chan struct{}
	val  any
	err  error
}

// NewThunk starts fn in a new goroutine and returns a Thunk resolving
// to its result.
func NewThunk(fn func() (any, error)) *Thunk {
	t := &Thunk{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		if recovered := panics.Try(func() {
			t.val, t.err = fn()
		}); recovered != nil {
			t.val, t.err = nil, recovered.AsError()
		}
	}()
	return t
}

// Await implements Pending.
func (t *Thunk) Await(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.val, t.err
	}
}

// ResolvePending awaits v as long as it is a Pending value and returns
// the settled result. Non-pending values pass through unchanged.
func ResolvePending(ctx context.Context, v any) (any, error) {
	for {
		p, ok := v.(Pending)
		if !ok {
			return v, nil
		}
		var err error
		v, err = p.Await(ctx)
		if err != nil {
			return nil, err
		}
	}
}

// Stringify converts a rendered value to its text form.
// nil renders empty, errors render their message, everything else
// follows the usual scalar conversions.
func Stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return StringValueEmpty
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
