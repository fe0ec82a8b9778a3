package worker

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/hashfinder/digest"
	"github.com/outofforest/hashfinder/termination"
	"github.com/outofforest/hashfinder/types"
	"github.com/outofforest/logger"
)

// DigestFunc computes digest of the candidate.
type DigestFunc func(candidate types.Candidate) (string, error)

// Digest is the DigestFunc used by the search.
func Digest(candidate types.Candidate) (string, error) {
	return digest.Compute(candidate), nil
}

// Config stores worker configuration.
type Config struct {
	ZeroCount uint64
	Digest    DigestFunc
	State     termination.State
	Emitter   termination.Emitter
}

// New creates new worker.
func New(config Config) *Worker {
	if config.Digest == nil {
		config.Digest = Digest
	}
	return &Worker{
		config: config,
	}
}

// Worker scans sub-ranges of candidates. The same worker may scan many sub-ranges concurrently.
type Worker struct {
	config  Config
	scanned atomic.Uint64
}

// Scan tests candidates of the sub-range in ascending order until the sub-range ends,
// the target is reached or context is canceled.
func (w *Worker) Scan(ctx context.Context, subRange types.SubRange) error {
	var scanned uint64
	defer func() {
		w.scanned.Add(scanned)
	}()

	for c := subRange.Range.Start; c < subRange.Range.End; c++ {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		default:
		}

		proceed, err := w.config.State.Step(types.Candidate(c), w, w.config.Emitter)
		if err != nil {
			return err
		}
		if !proceed {
			logger.Get(ctx).Debug("Target reached, worker stops",
				zap.Uint64("subRange", subRange.Index),
				zap.Uint64("candidate", c))
			return nil
		}
		scanned++
	}

	return nil
}

// Scanned returns the number of candidates tested so far.
func (w *Worker) Scanned() uint64 {
	return w.scanned.Load()
}

// Test computes the digest of the candidate and checks if it ends with enough zeros.
func (w *Worker) Test(candidate types.Candidate) (types.Match, bool, error) {
	d, err := w.config.Digest(candidate)
	if err != nil {
		return types.Match{}, false, errors.Wrapf(err, "computing digest of candidate %d failed", candidate)
	}
	if !digest.IsMatch(d, w.config.ZeroCount) {
		return types.Match{}, false, nil
	}
	return types.Match{
		Candidate: candidate,
		Digest:    d,
	}, true, nil
}
