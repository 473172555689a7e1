package api

// Result is either a decoded value or "service unavailable". Callers render
// their fallback content when OK is false; there is no error to inspect.
type Result[T any] struct {
	value T
	ok    bool
}

func Success[T any](v T) Result[T] { return Result[T]{value: v, ok: true} }

func Unavailable[T any]() Result[T] { return Result[T]{} }

// Get returns the value and whether it is available.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }

func (r Result[T]) OK() bool { return r.ok }

// Value is the zero value when unavailable.
func (r Result[T]) Value() T { return r.value }
