package sink

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/outofforest/hashfinder/types"
)

// MaxCapacity is the upper bound of the number of matches buffered between emitters and the writer.
const MaxCapacity = 1024

// New creates new sink.
func New(w io.Writer, capacity uint64) *Sink {
	return &Sink{
		w:         w,
		ch:        make(chan types.Match, min(capacity, MaxCapacity)),
		closingCh: make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Sink is the single writer printing matches in the order they are emitted.
// Channel receiving matches is never closed, so emitters still running after Close don't panic.
type Sink struct {
	w         io.Writer
	ch        chan types.Match
	closingCh chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	matches   []types.Match
}

// Run writes emitted matches until the sink is closed.
func (s *Sink) Run(ctx context.Context) error {
	defer close(s.doneCh)

	for {
		select {
		case m := <-s.ch:
			if err := s.write(m); err != nil {
				return err
			}
		case <-s.closingCh:
			for {
				select {
				case m := <-s.ch:
					if err := s.write(m); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

func (s *Sink) write(m types.Match) error {
	s.matches = append(s.matches, m)
	if _, err := fmt.Fprintln(s.w, m); err != nil {
		return errors.Wrapf(err, "writing match %d failed", m.Candidate)
	}
	return nil
}

// Emit passes match to the writer. Match emitted after the writer exited is dropped.
func (s *Sink) Emit(match types.Match) {
	select {
	case s.ch <- match:
	case <-s.doneCh:
	}
}

// Close tells the writer to exit once buffered matches are written.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.closingCh)
	})
}

// Matches returns emitted matches. It must be called after Run returns.
func (s *Sink) Matches() []types.Match {
	return s.matches
}
