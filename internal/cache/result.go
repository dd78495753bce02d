package cache

import "time"

// Status is the outcome of a cache read.
type Status int

const (
	StatusMiss Status = iota
	StatusHit
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusMiss:
		return "miss"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result distinguishes a hit, a clean miss and a store failure. Callers that
// only care about presence use Value; Miss and Unavailable both report false.
type Result[T any] struct {
	Status   Status
	Data     T
	StoredAt time.Time
	Err      error
}

// Hit builds a successful read.
func Hit[T any](data T, storedAt time.Time) Result[T] {
	return Result[T]{Status: StatusHit, Data: data, StoredAt: storedAt}
}

// Miss builds an absent-key read.
func Miss[T any]() Result[T] {
	return Result[T]{Status: StatusMiss}
}

// Unavailable builds a failed read carrying its cause.
func Unavailable[T any](err error) Result[T] {
	return Result[T]{Status: StatusUnavailable, Err: err}
}

// Value returns the cached data and whether it was present.
func (r Result[T]) Value() (T, bool) {
	return r.Data, r.Status == StatusHit
}
