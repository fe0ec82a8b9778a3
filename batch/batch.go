package batch

import (
	"github.com/pkg/errors"

	"github.com/outofforest/hashfinder/types"
)

// Mode defines how consecutive batches relate to each other.
type Mode string

// Batch modes.
const (
	// ModeCursor scans only the candidates added by the batch.
	ModeCursor Mode = "cursor"

	// ModeGrow rescans every batch from zero, so batch b covers [0, b*unit).
	ModeGrow Mode = "grow"
)

// DefaultUnit is the number of candidates each batch adds to the search.
const DefaultUnit uint64 = 100_000_000

// ParseMode converts string to batch mode.
func ParseMode(mode string) (Mode, error) {
	switch m := Mode(mode); m {
	case ModeCursor, ModeGrow:
		return m, nil
	default:
		return "", errors.Errorf("unknown batch mode %q", mode)
	}
}

// Config stores generator configuration.
type Config struct {
	Mode Mode
	Unit uint64

	// Capacity is the number of searchable candidates, types.CandidateCapacity is used if zero.
	Capacity uint64
}

// NewGenerator creates new batch generator.
func NewGenerator(config Config) (*Generator, error) {
	if config.Unit == 0 {
		return nil, errors.WithStack(types.ErrInvalidBatchSize)
	}
	if _, err := ParseMode(string(config.Mode)); err != nil {
		return nil, err
	}
	if config.Capacity == 0 {
		config.Capacity = types.CandidateCapacity
	}

	return &Generator{
		config: config,
	}, nil
}

// Generator produces successively larger batches of candidates.
type Generator struct {
	config Config
	index  uint64
}

// Next returns next batch.
func (g *Generator) Next() (types.Batch, error) {
	index := g.index + 1
	// index*unit <= capacity is checked without computing the product.
	if index > g.config.Capacity/g.config.Unit {
		return types.Batch{}, errors.Wrapf(types.ErrSearchSpaceExhausted,
			"batch %d would end beyond %d candidates", index, g.config.Capacity)
	}
	g.index = index

	end := index * g.config.Unit
	var start uint64
	if g.config.Mode == ModeCursor {
		start = end - g.config.Unit
	}

	return types.Batch{
		Index: index,
		Range: types.Range{
			Start: start,
			End:   end,
		},
	}, nil
}

// Reset restarts the sequence from the first batch.
func (g *Generator) Reset() {
	g.index = 0
}
