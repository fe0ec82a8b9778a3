package partition

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/outofforest/hashfinder/types"
)

// Partition splits the range into equally-sized, ordered sub-ranges, one per thread.
// Part size is rounded down, so the last r.Len() % threads candidates are not assigned to any thread.
func Partition(r types.Range, threads uint64) ([]types.SubRange, error) {
	if threads == 0 {
		return nil, errors.WithStack(types.ErrInvalidThreadCount)
	}

	part := r.Len() / threads
	return lo.Map(lo.Range(int(threads)), func(i int, _ int) types.SubRange {
		start := r.Start + uint64(i)*part
		return types.SubRange{
			Index: uint64(i),
			Range: types.Range{
				Start: start,
				End:   start + part,
			},
		}
	}), nil
}

// Uncovered returns the number of trailing candidates excluded by Partition.
func Uncovered(r types.Range, threads uint64) uint64 {
	if threads == 0 {
		return r.Len()
	}
	return r.Len() % threads
}
