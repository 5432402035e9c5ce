package adapter

// Status is the outcome of a registry getter.
type Status int

// Getter outcomes.
const (
	// StatusEmpty means nothing is configured for the request.
	StatusEmpty Status = iota
	// StatusOK means a live instance was returned.
	StatusOK
	// StatusFailed means something is configured but unavailable.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Result is what every registry getter returns.
//
// Err is nil for StatusOK, wraps ErrNotFound for StatusEmpty and wraps one
// of ErrUnresolvedDependency, ErrUnsupportedAdapterType,
// ErrConstructionFailed or ErrRepository for StatusFailed.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// OK reports whether Value holds a live instance.
func (r Result[T]) OK() bool { return r.Status == StatusOK }

// IsEmpty reports whether nothing was configured.
func (r Result[T]) IsEmpty() bool { return r.Status == StatusEmpty }

// Failed reports whether a configured adapter could not be provided.
func (r Result[T]) Failed() bool { return r.Status == StatusFailed }

func okResult[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

func emptyResult[T any](err error) Result[T] {
	return Result[T]{Status: StatusEmpty, Err: err}
}

func failedResult[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}
