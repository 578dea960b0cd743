package service

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageIterator is the message source consumed by Iterator.
// Implementations own the lifecycle of the consumer connection.
type MessageIterator interface {
	// Messages returns a channel closed when the source stops.
	Messages() <-chan kafka.Message

	// CommitOffset acknowledges a processed message.
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// LoaderFunc loads the current state of the tree referenced by an event.
type LoaderFunc[T any] func(ctx context.Context, id int64) (T, error)

// Actions carried by a TreeChangedEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TreeChangedEvent is published by the host site whenever a tree post is
// saved or removed.
type TreeChangedEvent struct {
	TreeID     int64     `json:"tree_id"`
	Action     string    `json:"action"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ChangedTree pairs the loaded tree with the event that announced it.
// Data is the zero value for deletions, including trees that are no
// longer published.
type ChangedTree[T any] struct {
	Data  T
	Event TreeChangedEvent
}
