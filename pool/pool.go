package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/outofforest/parallel"
)

// TaskFunc is the unit of work executed by the pool.
type TaskFunc func(ctx context.Context) error

type task struct {
	ctx      context.Context
	fn       TaskFunc
	resultCh chan<- error
}

// New creates new pool.
func New(numOfWorkers uint64) *Pool {
	return &Pool{
		numOfWorkers: numOfWorkers,
		tapCh:        make(chan task, numOfWorkers),
	}
}

// Pool is the set of long-living workers executing tasks submitted in batches.
type Pool struct {
	numOfWorkers uint64
	tapCh        chan task
	closeOnce    sync.Once
}

// Run runs the workers. It returns when the pool is closed or context is canceled.
func (p *Pool) Run(ctx context.Context) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for i := range p.numOfWorkers {
			spawn(fmt.Sprintf("worker-%02d", i), parallel.Continue, func(ctx context.Context) error {
				for {
					select {
					case <-ctx.Done():
						return errors.WithStack(ctx.Err())
					case t, ok := <-p.tapCh:
						if !ok {
							return nil
						}
						t.resultCh <- t.fn(t.ctx)
					}
				}
			})
		}
		return nil
	})
}

// RunBatch executes tasks on the pool and waits until all of them finish.
// The first failure cancels the rest of the batch and is returned.
func (p *Pool) RunBatch(ctx context.Context, tasks []TaskFunc) error {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan error, len(tasks))
	var submitted int
	var err error

loop:
	for _, fn := range tasks {
		select {
		case <-ctx.Done():
			err = errors.WithStack(ctx.Err())
			break loop
		case p.tapCh <- task{ctx: batchCtx, fn: fn, resultCh: resultCh}:
			submitted++
		}
	}

	for range submitted {
		select {
		case <-ctx.Done():
			// Workers exit on the same context, so pending results may never arrive.
			if err == nil {
				err = errors.WithStack(ctx.Err())
			}
			return err
		case taskErr := <-resultCh:
			if taskErr != nil && err == nil {
				err = taskErr
				cancel()
			}
		}
	}

	return err
}

// Close tells workers to exit when there are no more tasks.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tapCh)
	})
}
