// Package pipeline runs the side effects that follow a successful export.
// Steps within a stage run in parallel; stages run one after the other.
package pipeline

import "context"

// Step acts on the item. A failing step returns an error; the pipeline
// logs it and keeps going.
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that may run concurrently on the same item.
//
// Steps that write to the item must coordinate on shared fields.
type Stage[T any] struct {
	name  string
	steps []Step[T]
}

// NewStage constructs a named Stage from the provided steps.
func NewStage[T any](name string, steps ...Step[T]) Stage[T] {
	return Stage[T]{name: name, steps: steps}
}
