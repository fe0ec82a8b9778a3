package pool

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
)

// RunInTest creates and runs pool for unit tests.
func RunInTest(t *testing.T, numOfWorkers uint64) (context.Context, *Pool) {
	p := New(numOfWorkers)

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)))
	t.Cleanup(cancel)

	group := parallel.NewGroup(ctx)
	group.Spawn("pool", parallel.Continue, p.Run)

	t.Cleanup(func() {
		p.Close()
		group.Exit(nil)
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			t.Fatal(err)
		}
	})

	return ctx, p
}
