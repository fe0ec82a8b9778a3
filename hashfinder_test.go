package hashfinder

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/outofforest/hashfinder/batch"
	"github.com/outofforest/hashfinder/digest"
	"github.com/outofforest/hashfinder/termination"
	"github.com/outofforest/hashfinder/test"
	"github.com/outofforest/hashfinder/types"
	"github.com/outofforest/hashfinder/worker"
)

func newConfig(buf *bytes.Buffer) Config {
	config := DefaultConfig()
	config.Output = buf
	return config
}

func countingDigest(counter *atomic.Uint64) worker.DigestFunc {
	return func(candidate types.Candidate) (string, error) {
		counter.Add(1)
		return worker.Digest(candidate)
	}
}

func outputLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
}

func TestReferenceScenario(t *testing.T) {
	requireT := require.New(t)

	buf := &bytes.Buffer{}
	config := newConfig(buf)
	config.ZeroCount = 3
	config.TargetCount = 3
	config.ThreadCount = 1
	config.BatchMode = batch.ModeGrow
	config.CounterMode = termination.ModeSerialized

	result, err := Search(test.Context(t), config)
	requireT.NoError(err)
	requireT.Equal(uint64(3), result.Found)
	requireT.Equal(uint64(1), result.Batches)
	requireT.Equal([]types.Match{
		{Candidate: 447, Digest: digest.Compute(447)},
		{Candidate: 904, Digest: digest.Compute(904)},
		{Candidate: 15117, Digest: digest.Compute(15117)},
	}, result.Matches)
	requireT.Equal([]string{
		"447, 39d12e05563c360e252512ff1aa40a336eec2e658bfce986a7a5ada536f15000",
		"904, e5bea03d666177d69338c3d84c71982b2ff5189275597af8d990926cef50c000",
		"15117, e7de52d7d837281a919225770f5603d00a6cb9a73a49d740432f23f3fe66b000",
	}, outputLines(buf))
	requireT.Equal(uint64(15117)+1, result.Scanned)
}

func TestSingleThreadReportsMatchesInAscendingOrder(t *testing.T) {
	for _, mode := range []termination.Mode{termination.ModeAtomic, termination.ModeSerialized} {
		t.Run(string(mode), func(t *testing.T) {
			requireT := require.New(t)

			buf := &bytes.Buffer{}
			config := newConfig(buf)
			config.ZeroCount = 2
			config.TargetCount = 5
			config.BatchSize = 1000
			config.CounterMode = mode

			result, err := Search(test.Context(t), config)
			requireT.NoError(err)
			requireT.Equal(uint64(5), result.Found)
			requireT.Equal([]types.Candidate{447, 653, 730, 845, 904}, []types.Candidate{
				result.Matches[0].Candidate,
				result.Matches[1].Candidate,
				result.Matches[2].Candidate,
				result.Matches[3].Candidate,
				result.Matches[4].Candidate,
			})
			requireT.Len(outputLines(buf), 5)
			requireT.True(strings.HasPrefix(buf.String(), "447, "))
		})
	}
}

func TestManyThreadsReportExactlyTargetCount(t *testing.T) {
	for _, mode := range []termination.Mode{termination.ModeAtomic, termination.ModeSerialized} {
		for _, batchMode := range []batch.Mode{batch.ModeCursor, batch.ModeGrow} {
			t.Run(string(mode)+"/"+string(batchMode), func(t *testing.T) {
				requireT := require.New(t)

				buf := &bytes.Buffer{}
				config := newConfig(buf)
				config.ZeroCount = 2
				config.TargetCount = 25
				config.ThreadCount = 8
				config.BatchSize = 1000
				config.BatchMode = batchMode
				config.CounterMode = mode

				result, err := Search(test.Context(t), config)
				requireT.NoError(err)
				requireT.Equal(uint64(25), result.Found)
				requireT.Len(result.Matches, 25)
				requireT.Len(outputLines(buf), 25)
				for _, m := range result.Matches {
					requireT.True(digest.IsMatch(m.Digest, 2))
					requireT.Equal(digest.Compute(m.Candidate), m.Digest)
				}
			})
		}
	}
}

func TestTargetZeroScansNothing(t *testing.T) {
	requireT := require.New(t)

	var digests atomic.Uint64
	buf := &bytes.Buffer{}
	config := newConfig(buf)
	config.ZeroCount = 3
	config.ThreadCount = 4
	config.digest = countingDigest(&digests)

	result, err := Search(test.Context(t), config)
	requireT.NoError(err)
	requireT.Equal(Result{}, result)
	requireT.Equal(uint64(0), digests.Load())
	requireT.Empty(buf.String())
}

func TestZeroThreadsRejected(t *testing.T) {
	requireT := require.New(t)

	var digests atomic.Uint64
	buf := &bytes.Buffer{}
	config := newConfig(buf)
	config.ZeroCount = 1
	config.TargetCount = 1
	config.ThreadCount = 0
	config.digest = countingDigest(&digests)

	result, err := Search(test.Context(t), config)
	requireT.ErrorIs(err, types.ErrInvalidThreadCount)
	requireT.Equal(Result{}, result)
	requireT.Equal(uint64(0), digests.Load())

	// Thread count is validated even if there is nothing to search for.
	config.TargetCount = 0
	_, err = Search(test.Context(t), config)
	requireT.ErrorIs(err, types.ErrInvalidThreadCount)
}

func TestValidateReportsAllErrors(t *testing.T) {
	requireT := require.New(t)

	config := DefaultConfig()
	config.ThreadCount = 0
	config.ZeroCount = digest.Length + 1
	config.BatchSize = 0
	config.BatchMode = "sideways"

	err := config.Validate()
	requireT.ErrorIs(err, types.ErrInvalidThreadCount)
	requireT.ErrorIs(err, types.ErrInvalidZeroCount)
	requireT.ErrorIs(err, types.ErrInvalidBatchSize)
	requireT.Len(multierr.Errors(err), 4)
}

func TestValidateAcceptsBoundaries(t *testing.T) {
	requireT := require.New(t)

	config := DefaultConfig()
	config.ZeroCount = digest.Length
	requireT.NoError(config.Validate())

	config.ZeroCount = 0
	requireT.NoError(config.Validate())
}

func TestBatchModes(t *testing.T) {
	tests := []struct {
		mode       batch.Mode
		candidates []types.Candidate
		scanned    uint64
	}{
		// First batch [0, 10000) contains 447 and 904, second one [10000, 20000) contains 15117 and 15527.
		{
			mode:       batch.ModeCursor,
			candidates: []types.Candidate{447, 904, 15117, 15527},
			scanned:    10000 + 15527 - 10000 + 1,
		},
		// Second batch [0, 20000) rescans and reports 447 and 904 again.
		{
			mode:       batch.ModeGrow,
			candidates: []types.Candidate{447, 447, 904, 904},
			scanned:    10000 + 904 + 1,
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			requireT := require.New(t)

			config := newConfig(&bytes.Buffer{})
			config.ZeroCount = 3
			config.TargetCount = 4
			config.BatchSize = 10000
			config.BatchMode = tc.mode

			result, err := Search(test.Context(t), config)
			requireT.NoError(err)
			requireT.Equal(uint64(2), result.Batches)
			requireT.Equal(tc.candidates, test.CollectCandidates(result.Matches))
			requireT.Equal(tc.scanned, result.Scanned)
		})
	}
}

func TestPartitionTailIsNeverScanned(t *testing.T) {
	requireT := require.New(t)

	config := newConfig(&bytes.Buffer{})
	config.ZeroCount = 0
	config.TargetCount = 9
	config.ThreadCount = 3
	config.BatchSize = 10

	result, err := Search(test.Context(t), config)
	requireT.NoError(err)
	requireT.Equal(uint64(1), result.Batches)
	requireT.Equal(uint64(9), result.Scanned)
	// Candidate 9 is the R mod T tail of the first batch.
	requireT.Equal([]types.Candidate{0, 1, 2, 3, 4, 5, 6, 7, 8}, test.CollectCandidates(result.Matches))
}

func TestSearchSpaceExhausted(t *testing.T) {
	requireT := require.New(t)

	config := newConfig(&bytes.Buffer{})
	// No digest of the candidates below 20000 ends with 5 zeros.
	config.ZeroCount = 5
	config.TargetCount = 1
	config.ThreadCount = 2
	config.BatchSize = 5000
	config.capacity = 20000

	result, err := Search(test.Context(t), config)
	requireT.ErrorIs(err, types.ErrSearchSpaceExhausted)
	requireT.Equal(uint64(0), result.Found)
	requireT.Equal(uint64(4), result.Batches)
	requireT.Equal(uint64(20000), result.Scanned)
}

func TestWorkerFailureAbortsSearch(t *testing.T) {
	requireT := require.New(t)

	testErr := errors.New("test")
	config := newConfig(&bytes.Buffer{})
	config.ZeroCount = 5
	config.TargetCount = 1
	config.ThreadCount = 2
	config.BatchSize = 4000
	config.digest = func(candidate types.Candidate) (string, error) {
		if candidate == 1500 {
			return "", testErr
		}
		return worker.Digest(candidate)
	}

	result, err := Search(test.Context(t), config)
	requireT.ErrorIs(err, testErr)
	requireT.ErrorContains(err, "candidate 1500")
	requireT.Equal(uint64(0), result.Batches)
}

func TestSearchDeadline(t *testing.T) {
	requireT := require.New(t)

	ctx, cancel := context.WithTimeout(test.Context(t), 50*time.Millisecond)
	t.Cleanup(cancel)

	config := newConfig(&bytes.Buffer{})
	config.ZeroCount = digest.Length
	config.TargetCount = 1
	config.ThreadCount = 2

	_, err := Search(ctx, config)
	requireT.ErrorIs(err, context.DeadlineExceeded)
}

func TestSearchCanceled(t *testing.T) {
	requireT := require.New(t)

	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()

	config := newConfig(&bytes.Buffer{})
	config.ZeroCount = 1
	config.TargetCount = 1

	_, err := Search(ctx, config)
	requireT.ErrorIs(err, context.Canceled)
}

func TestSearchDeadlineWhileMatchesFlow(t *testing.T) {
	requireT := require.New(t)

	for i := range 50 {
		ctx, cancel := context.WithTimeout(test.Context(t), time.Duration(i%5+1)*time.Millisecond)

		config := newConfig(&bytes.Buffer{})
		config.ZeroCount = 0
		config.TargetCount = 1 << 40
		config.ThreadCount = 32

		_, err := Search(ctx, config)
		cancel()
		requireT.ErrorIs(err, context.DeadlineExceeded)
	}
}

type failingWriter struct {
	lines int
	err   error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.lines == 0 {
		return 0, w.err
	}
	w.lines--
	return len(p), nil
}

func TestOutputFailureAbortsSearch(t *testing.T) {
	requireT := require.New(t)

	writeErr := errors.New("disk full")
	config := DefaultConfig()
	config.Output = &failingWriter{lines: 2, err: writeErr}
	config.ZeroCount = 0
	config.TargetCount = 1000
	config.ThreadCount = 8

	_, err := Search(test.Context(t), config)
	requireT.ErrorIs(err, writeErr)
	requireT.ErrorContains(err, "writing match")
}

func TestValidateBoundsThreadCount(t *testing.T) {
	requireT := require.New(t)

	config := DefaultConfig()
	config.ThreadCount = MaxThreadCount
	requireT.NoError(config.Validate())

	config.ThreadCount = 10_000_000_000_000
	requireT.ErrorIs(config.Validate(), types.ErrInvalidThreadCount)

	var digests atomic.Uint64
	config.ZeroCount = 1
	config.TargetCount = 1
	config.Output = &bytes.Buffer{}
	config.digest = countingDigest(&digests)
	_, err := Search(test.Context(t), config)
	requireT.ErrorIs(err, types.ErrInvalidThreadCount)
	requireT.Equal(uint64(0), digests.Load())
}
