package queue

import "errors"

// ErrQueueFull is returned by Add when the collection already holds the
// configured maximum number of items. Nothing is inserted.
var ErrQueueFull = errors.New("queue is at capacity")
