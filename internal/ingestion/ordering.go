package ingestion

import (
	"errors"
	"sort"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortEnvelopes orders envelopes by (block ASC, log_index ASC).
// The sort is stable so duplicates keep their arrival order.
func SortEnvelopes(envs []*Envelope) {
	sort.SliceStable(envs, func(i, j int) bool {
		return compareEnvelopes(envs[i], envs[j]) < 0
	})
}

// ValidateOrdering checks that envelopes are strictly increasing.
// Returns ErrInvalidOrdering if not.
func ValidateOrdering(envs []*Envelope) error {
	for i := 1; i < len(envs); i++ {
		if compareEnvelopes(envs[i-1], envs[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareEnvelopes returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (block ASC, log_index ASC)
func compareEnvelopes(a, b *Envelope) int {
	return comparePosition(a.Block, a.LogIndex, b.Block, b.LogIndex)
}

func comparePosition(blockA, logA, blockB, logB int64) int {
	if blockA != blockB {
		if blockA < blockB {
			return -1
		}
		return 1
	}
	if logA != logB {
		if logA < logB {
			return -1
		}
		return 1
	}
	return 0
}
