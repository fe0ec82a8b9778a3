package types

import "fmt"

const (
	// CandidateLength is the number of bytes taken by the encoded candidate.
	CandidateLength = 4

	// CandidateCapacity is the number of distinct candidates representable by the encoding.
	CandidateCapacity uint64 = 1 << (8 * CandidateLength)
)

// Candidate is the number tested by the search.
type Candidate uint32

// Range is the half-open range [Start, End) of candidates.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of candidates in the range.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains tells if other range is fully included in this one.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Batch is the range scanned by one iteration of the search.
type Batch struct {
	// Index starts from 1.
	Index uint64
	Range Range
}

// SubRange is the part of the batch assigned to a single worker.
type SubRange struct {
	Index uint64
	Range Range
}

// Match is the candidate whose digest satisfies the search.
type Match struct {
	Candidate Candidate
	Digest    string
}

// String returns the line printed for the match.
func (m Match) String() string {
	return fmt.Sprintf("%d, %s", m.Candidate, m.Digest)
}
