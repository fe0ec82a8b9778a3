package hashfinder

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/outofforest/hashfinder/batch"
	"github.com/outofforest/hashfinder/digest"
	"github.com/outofforest/hashfinder/termination"
	"github.com/outofforest/hashfinder/types"
	"github.com/outofforest/hashfinder/worker"
)

// MaxThreadCount is the largest accepted number of workers.
const MaxThreadCount = 1 << 16

// Config stores search configuration.
type Config struct {
	// ZeroCount is the number of trailing '0' characters required in the digest.
	ZeroCount uint64

	// TargetCount is the number of matches to find.
	TargetCount uint64

	// ThreadCount is the number of workers scanning each batch.
	ThreadCount uint64

	// BatchSize is the number of candidates each batch adds to the search.
	BatchSize uint64

	// BatchMode selects whether each batch scans only new candidates or restarts from zero.
	BatchMode batch.Mode

	// CounterMode selects how workers synchronize on the shared match counter.
	CounterMode termination.Mode

	// Output receives one line per match.
	Output io.Writer

	// capacity and digest are replaced by tests to keep them short.
	capacity uint64
	digest   worker.DigestFunc
}

// DefaultConfig returns default search configuration.
func DefaultConfig() Config {
	return Config{
		ThreadCount: 1,
		BatchSize:   batch.DefaultUnit,
		BatchMode:   batch.ModeCursor,
		CounterMode: termination.ModeAtomic,
		Output:      os.Stdout,
	}
}

// Validate returns all the problems found in the configuration.
func (c Config) Validate() error {
	var err error
	switch {
	case c.ThreadCount == 0:
		err = multierr.Append(err, errors.WithStack(types.ErrInvalidThreadCount))
	case c.ThreadCount > MaxThreadCount:
		err = multierr.Append(err, errors.Wrapf(types.ErrInvalidThreadCount, "%d requested, at most %d allowed",
			c.ThreadCount, MaxThreadCount))
	}
	if c.ZeroCount > digest.Length {
		err = multierr.Append(err, errors.Wrapf(types.ErrInvalidZeroCount, "%d requested, digest has %d characters",
			c.ZeroCount, digest.Length))
	}
	if c.BatchSize == 0 {
		err = multierr.Append(err, errors.WithStack(types.ErrInvalidBatchSize))
	}
	if _, modeErr := batch.ParseMode(string(c.BatchMode)); modeErr != nil {
		err = multierr.Append(err, modeErr)
	}
	if _, modeErr := termination.ParseMode(string(c.CounterMode)); modeErr != nil {
		err = multierr.Append(err, modeErr)
	}
	if c.Output == nil {
		err = multierr.Append(err, errors.New("output is not set"))
	}
	return err
}
