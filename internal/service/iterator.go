// Package service turns the tree change feed into loaded records.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"arboretum/internal/hoststore"
)

// Iterator reads TreeChangedEvent messages, loads the referenced tree with
// a LoaderFunc and yields the result. Offsets are committed after the
// result has been handed to the reader of Changes.
type Iterator[T any] struct {
	msgIterator MessageIterator
	loader      LoaderFunc[T]
}

func NewIterator[T any](iterator MessageIterator, loader LoaderFunc[T]) *Iterator[T] {
	return &Iterator[T]{
		msgIterator: iterator,
		loader:      loader,
	}
}

// Changes streams loaded trees until the message source closes or ctx is
// done. Malformed messages are committed and skipped. A tree that is no
// longer published is reported like a deletion. Other load failures are
// skipped without commit; the next commit on the partition moves past
// them, so they come back only if the consumer restarts first.
func (it *Iterator[T]) Changes(ctx context.Context) <-chan *ChangedTree[T] {
	out := make(chan *ChangedTree[T])
	go func() {
		defer close(out)

		for msg := range it.msgIterator.Messages() {
			event, err := decodeEvent(msg.Value)
			if err != nil {
				logrus.Warnf("Skipping change message at offset %d: %v", msg.Offset, err)
				it.commit(ctx, msg)
				continue
			}

			changed := &ChangedTree[T]{Event: event}
			if event.Action != ActionDeleted {
				data, err := it.loader(ctx, event.TreeID)
				switch {
				case errors.Is(err, hoststore.ErrNotFound):
					logrus.Infof("Tree %d is no longer published", event.TreeID)
					changed.Event.Action = ActionDeleted
				case err != nil:
					logrus.Errorf("Error loading tree %d: %v", event.TreeID, err)
					continue
				default:
					changed.Data = data
				}
			}

			select {
			case out <- changed:
			case <-ctx.Done():
				return
			}
			it.commit(ctx, msg)
		}
	}()
	return out
}

func (it *Iterator[T]) commit(ctx context.Context, msg kafka.Message) {
	if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
		logrus.Errorf("Failed to commit offset: %v", err)
	}
}

func decodeEvent(raw []byte) (TreeChangedEvent, error) {
	var event TreeChangedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return TreeChangedEvent{}, fmt.Errorf("invalid change event: %w", err)
	}
	if event.TreeID <= 0 {
		return TreeChangedEvent{}, errors.New("invalid change event: missing tree_id")
	}
	switch event.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	case "":
		event.Action = ActionUpdated
	default:
		return TreeChangedEvent{}, fmt.Errorf("invalid change event: unknown action %q", event.Action)
	}
	return event, nil
}
