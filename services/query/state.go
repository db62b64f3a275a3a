package query

import "time"

// Key identifies one cached read: the role dashboard it belongs to plus the
// backend operation that fills it.
type Key struct {
	Role      string
	Operation string
}

func NewKey(role, operation string) Key {
	return Key{Role: role, Operation: operation}
}

func (k Key) String() string {
	return k.Role + ":" + k.Operation
}

// Status is the tag of a State.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// State is what a view knows about one query. Exactly one of the three
// shapes holds: loading (no data yet), loaded (Data valid, may be an empty
// list) or failed (Err set).
type State[T any] struct {
	Status    Status
	Data      T
	Err       error
	FetchedAt time.Time
}

func Loading[T any]() State[T] {
	return State[T]{Status: StatusLoading}
}

func Loaded[T any](data T, fetchedAt time.Time) State[T] {
	return State[T]{Status: StatusLoaded, Data: data, FetchedAt: fetchedAt}
}

func Failed[T any](err error) State[T] {
	return State[T]{Status: StatusFailed, Err: err}
}

func (s State[T]) IsLoading() bool { return s.Status == StatusLoading }
func (s State[T]) IsLoaded() bool  { return s.Status == StatusLoaded }
func (s State[T]) IsFailed() bool  { return s.Status == StatusFailed }
