package temply

import (
	"context"

	"github.com/itsatony/go-temply/internal"
)

// Pending is a value that settles later. Identifier lookups and text
// concatenation await pending values automatically; any type with a
// matching Await method qualifies, so callers can feed futures from
// their own async machinery into template data.
type Pending interface {
	Await(ctx context.Context) (any, error)
}

// NewThunk starts fn in a goroutine and returns a Pending that settles
// with its result. Panics in fn are recovered and surfaced as errors.
func NewThunk(fn func() (any, error)) Pending {
	return internal.NewThunk(fn)
}

// Stringify converts a value to its rendered text form: nil renders
// empty, errors render their message, fmt.Stringer is honored.
func Stringify(v any) string {
	return internal.Stringify(v)
}
