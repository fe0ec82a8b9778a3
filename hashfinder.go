package hashfinder

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/outofforest/hashfinder/batch"
	"github.com/outofforest/hashfinder/partition"
	"github.com/outofforest/hashfinder/pool"
	"github.com/outofforest/hashfinder/sink"
	"github.com/outofforest/hashfinder/termination"
	"github.com/outofforest/hashfinder/types"
	"github.com/outofforest/hashfinder/worker"
	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
)

// Result summarizes the search.
type Result struct {
	// Matches are stored in the order they were reported.
	Matches []types.Match
	Found   uint64
	Batches uint64
	Scanned uint64
}

// Search looks for candidates whose digests end with config.ZeroCount zeros
// until config.TargetCount of them are reported.
func Search(ctx context.Context, config Config) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}

	log := logger.Get(ctx)
	if config.TargetCount == 0 {
		log.Info("Nothing to search for")
		return Result{}, nil
	}

	generator, err := batch.NewGenerator(batch.Config{
		Mode:     config.BatchMode,
		Unit:     config.BatchSize,
		Capacity: config.capacity,
	})
	if err != nil {
		return Result{}, err
	}
	state, err := termination.New(config.CounterMode, config.TargetCount)
	if err != nil {
		return Result{}, err
	}

	workerPool := pool.New(config.ThreadCount)
	matchSink := sink.New(config.Output, config.ThreadCount)
	w := worker.New(worker.Config{
		ZeroCount: config.ZeroCount,
		Digest:    config.digest,
		State:     state,
		Emitter:   matchSink,
	})

	log.Info("Search started",
		zap.Uint64("zeroCount", config.ZeroCount),
		zap.Uint64("targetCount", config.TargetCount),
		zap.Uint64("threadCount", config.ThreadCount),
		zap.String("batchMode", string(config.BatchMode)),
		zap.String("counterMode", string(config.CounterMode)))

	var batches uint64
	err = parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("sink", parallel.Continue, matchSink.Run)
		spawn("pool", parallel.Continue, workerPool.Run)
		spawn("orchestrator", parallel.Continue, func(ctx context.Context) error {
			defer matchSink.Close()
			defer workerPool.Close()

			for {
				b, err := generator.Next()
				if err != nil {
					return errors.Wrapf(err, "%d of %d matches found", state.Found(), config.TargetCount)
				}

				subRanges, err := partition.Partition(b.Range, config.ThreadCount)
				if err != nil {
					return err
				}

				log.Debug("Batch started",
					zap.Uint64("batch", b.Index),
					zap.Uint64("start", b.Range.Start),
					zap.Uint64("end", b.Range.End),
					zap.Uint64("uncovered", partition.Uncovered(b.Range, config.ThreadCount)))

				tasks := lo.Map(subRanges, func(sr types.SubRange, _ int) pool.TaskFunc {
					return func(ctx context.Context) error {
						return w.Scan(ctx, sr)
					}
				})
				if err := workerPool.RunBatch(ctx, tasks); err != nil {
					return errors.Wrapf(err, "batch %d failed", b.Index)
				}
				batches++

				found := state.Found()
				log.Debug("Batch finished", zap.Uint64("batch", b.Index), zap.Uint64("found", found))
				if found == config.TargetCount {
					return nil
				}
			}
		})
		return nil
	})

	result := Result{
		Matches: matchSink.Matches(),
		Found:   state.Found(),
		Batches: batches,
		Scanned: w.Scanned(),
	}
	if err != nil {
		log.Error("Search failed", zap.Uint64("found", result.Found), zap.Error(err))
		return result, err
	}

	log.Info("Search completed",
		zap.Uint64("found", result.Found),
		zap.Uint64("batches", result.Batches),
		zap.Uint64("scanned", result.Scanned))
	return result, nil
}
