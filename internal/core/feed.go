package core

// Feed is a push stream from the backend. C is closed when the stream ends;
// Err then reports why (nil after Close or context cancellation).
type Feed[T any] interface {
	C() <-chan T
	Err() error
	Close() error
}
