package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Step is one operation applied to an item in place. Steps of the same stage
// run concurrently and must not write the same fields.
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that run in parallel for one item. A required stage that
// fails rejects the item; failures of other stages are only logged.
type Stage[T any] struct {
	name     string
	steps    []Step[T]
	required bool
}

func NewStage[T any](name string, steps ...Step[T]) Stage[T] {
	return Stage[T]{name: name, steps: steps}
}

// Required marks the stage as a gate for the item.
func (s Stage[T]) Required() Stage[T] {
	s.required = true
	return s
}

// Outcome is an item after the pipeline ran, with the error that rejected it.
type Outcome[T any] struct {
	Item *T
	Err  error
}

// Pipeline runs stages in order with a barrier between them.
type Pipeline[T any] struct {
	stages []Stage[T]
}

func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// Run applies every stage to item.
func (p *Pipeline[T]) Run(ctx context.Context, item *T) error {
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := stage.run(ctx, item)
		if err == nil {
			continue
		}
		if stage.required {
			return fmt.Errorf("%s: %w", stage.name, err)
		}
		logrus.WithError(err).WithField("stage", stage.name).Warn("Pipeline step failed")
	}
	return nil
}

func (s Stage[T]) run(ctx context.Context, item *T) error {
	errs := make([]error, len(s.steps))
	var wg sync.WaitGroup
	for i, step := range s.steps {
		wg.Add(1)
		go func(i int, step Step[T]) {
			defer wg.Done()
			errs[i] = step(ctx, item)
		}(i, step)
	}
	wg.Wait() // stage barrier
	return errors.Join(errs...)
}

// Process runs the pipeline over every item of in, preserving order, and
// closes the returned channel when in is drained or ctx is done.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T) <-chan Outcome[T] {
	out := make(chan Outcome[T])
	go func() {
		defer close(out)
		for item := range in {
			res := Outcome[T]{Item: item, Err: p.Run(ctx, item)}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
