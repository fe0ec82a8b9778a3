package types

import "github.com/pkg/errors"

var (
	// ErrInvalidThreadCount is returned when zero workers are requested.
	ErrInvalidThreadCount = errors.New("thread count must be at least 1")

	// ErrInvalidZeroCount is returned when more trailing zeros are requested than digest has characters.
	ErrInvalidZeroCount = errors.New("zero count exceeds digest length")

	// ErrInvalidBatchSize is returned when batch size is zero.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrSearchSpaceExhausted is returned when all the representable candidates were used before target was reached.
	ErrSearchSpaceExhausted = errors.New("search space exhausted")

	// ErrArgument is returned when command line argument is missing or malformed.
	ErrArgument = errors.New("argument missing or malformed")
)
