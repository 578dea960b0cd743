package pipeline

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pipeline applies its stages in order.
type Pipeline[T any] struct {
	stages []Stage[T]
}

// NewPipeline constructs a Pipeline from the provided stages.
func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// Run applies every stage to item and returns the step errors, in stage
// order. A stage starts only after every step of the previous one has
// returned.
func (p *Pipeline[T]) Run(ctx context.Context, item *T) []error {
	var failures []error
	for _, stage := range p.stages {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for _, step := range stage.steps {
			wg.Add(1)
			go func(step Step[T]) {
				defer wg.Done()
				if err := step(ctx, item); err != nil {
					logrus.WithField("stage", stage.name).Errorf("Step failed: %v", err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(step)
		}
		wg.Wait()
		failures = append(failures, errs...)
	}
	return failures
}
