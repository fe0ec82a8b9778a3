package test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/samber/lo"

	"github.com/outofforest/hashfinder/types"
	"github.com/outofforest/logger"
)

// Context returns context carrying logger, canceled when test finishes.
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)))
	t.Cleanup(cancel)
	return ctx
}

// CollectCandidates returns candidates of the matches in ascending order.
func CollectCandidates(matches []types.Match) []types.Candidate {
	candidates := lo.Map(matches, func(m types.Match, _ int) types.Candidate {
		return m.Candidate
	})

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i] < candidates[j]
	})
	return candidates
}

// Collector is the emitter storing matches in memory.
type Collector struct {
	mu      sync.Mutex
	matches []types.Match
}

// Emit stores the match.
func (c *Collector) Emit(match types.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.matches = append(c.matches, match)
}

// Matches returns matches in the order they were emitted.
func (c *Collector) Matches() []types.Match {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]types.Match{}, c.matches...)
}
