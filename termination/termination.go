package termination

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/outofforest/hashfinder/types"
)

// Mode defines how workers synchronize on the match counter.
type Mode string

// Counter modes.
const (
	// ModeAtomic counts matches lock-free and lets workers hash in parallel.
	ModeAtomic Mode = "atomic"

	// ModeSerialized holds the lock for the entire processing of the candidate,
	// so at most one worker makes progress at any time.
	ModeSerialized Mode = "serialized"
)

// ParseMode converts string to counter mode.
func ParseMode(mode string) (Mode, error) {
	switch m := Mode(mode); m {
	case ModeAtomic, ModeSerialized:
		return m, nil
	default:
		return "", errors.Errorf("unknown counter mode %q", mode)
	}
}

// Tester computes the digest of the candidate and checks it.
type Tester interface {
	Test(candidate types.Candidate) (types.Match, bool, error)
}

// Emitter reports found match.
type Emitter interface {
	Emit(match types.Match)
}

// State is the match counter shared by all the workers of the search.
type State interface {
	// Target returns the number of matches the search looks for.
	Target() uint64

	// Found returns the number of matches reported so far.
	Found() uint64

	// Step processes one candidate. It returns false if target has been reached and worker should stop.
	Step(candidate types.Candidate, tester Tester, emitter Emitter) (bool, error)
}

// New creates termination state of requested mode.
func New(mode Mode, target uint64) (State, error) {
	switch mode {
	case ModeAtomic:
		return NewAtomic(target), nil
	case ModeSerialized:
		return NewSerialized(target), nil
	default:
		return nil, errors.Errorf("unknown counter mode %q", mode)
	}
}

// NewSerialized creates state guarded by a mutex.
func NewSerialized(target uint64) *Serialized {
	return &Serialized{
		target: target,
	}
}

// Serialized keeps the lock while the candidate is hashed, tested, counted and emitted.
type Serialized struct {
	mu     sync.Mutex
	target uint64
	found  uint64
}

// Target returns the number of matches the search looks for.
func (s *Serialized) Target() uint64 {
	return s.target
}

// Found returns the number of matches reported so far.
func (s *Serialized) Found() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.found
}

// Step processes one candidate.
func (s *Serialized) Step(candidate types.Candidate, tester Tester, emitter Emitter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.found >= s.target {
		return false, nil
	}

	match, ok, err := tester.Test(candidate)
	if err != nil {
		return false, err
	}
	if ok {
		s.found++
		emitter.Emit(match)
	}
	return true, nil
}

// NewAtomic creates lock-free state.
func NewAtomic(target uint64) *Atomic {
	return &Atomic{
		target: target,
	}
}

// Atomic checks and increments the counter without locking, so candidates are tested concurrently.
// Match found by a worker after the target has been reached by others is dropped,
// so up to (workers - 1) matches might be computed but never reported.
type Atomic struct {
	target uint64
	found  atomic.Uint64
}

// Target returns the number of matches the search looks for.
func (a *Atomic) Target() uint64 {
	return a.target
}

// Found returns the number of matches reported so far.
func (a *Atomic) Found() uint64 {
	return a.found.Load()
}

// Step processes one candidate.
func (a *Atomic) Step(candidate types.Candidate, tester Tester, emitter Emitter) (bool, error) {
	if a.found.Load() >= a.target {
		return false, nil
	}

	match, ok, err := tester.Test(candidate)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	for {
		found := a.found.Load()
		if found >= a.target {
			return false, nil
		}
		if a.found.CompareAndSwap(found, found+1) {
			emitter.Emit(match)
			return true, nil
		}
	}
}
