package queue

import "context"

// Listener receives queue lifecycle events. Implementations are invoked
// synchronously in registration order after the triggering mutation has been
// applied and persisted; a returned error is logged by the Manager and does
// not affect the operation or delivery to the remaining listeners.
type Listener interface {
	ItemAdded(ctx context.Context, item *Item) error
	ItemStarted(ctx context.Context, item *Item) error
	ItemCompleted(ctx context.Context, item *Item) error
	ItemFailed(ctx context.Context, item *Item) error
}

type eventKind string

const (
	eventAdded     eventKind = "item_added"
	eventStarted   eventKind = "item_started"
	eventCompleted eventKind = "item_completed"
	eventFailed    eventKind = "item_failed"
)

func dispatch(ctx context.Context, listener Listener, event eventKind, item *Item) error {
	switch event {
	case eventAdded:
		return listener.ItemAdded(ctx, item)
	case eventStarted:
		return listener.ItemStarted(ctx, item)
	case eventCompleted:
		return listener.ItemCompleted(ctx, item)
	case eventFailed:
		return listener.ItemFailed(ctx, item)
	default:
		return nil
	}
}
