// Package seed provides deterministic hashing and pseudo-random sequences.
// Everything downstream of the market data generator is reproducible given
// the same seed string, so the registry can regenerate a run's full data
// set on demand instead of storing it.
package seed

import (
	"strings"

	"github.com/google/uuid"
)

// Hash maps an arbitrary string to a non-negative integer. It is the
// 31-shift rolling hash over signed 32-bit arithmetic that the legacy
// system used, kept bit-for-bit so seeds keep producing the same series.
func Hash(s string) int64 {
	var h int32
	for _, c := range s {
		h = (h << 5) - h + int32(c)
	}
	if h < 0 {
		h = -h
	}
	return int64(h)
}

// Sequence is a deterministic pseudo-random sequence of floats in [0, 1).
// Two sequences built from the same seed yield identical values.
type Sequence struct {
	state int64
}

// NewSequence returns a sequence seeded with the given value.
func NewSequence(s int64) *Sequence {
	return &Sequence{state: s}
}

// Float64 returns the next value in [0, 1).
func (s *Sequence) Float64() float64 {
	s.state = (s.state*1664525 + 1013904223) & 0x7fffffff
	return float64(s.state) / float64(0x7fffffff)
}

// NewRunID returns a globally-unique, time-ordered run identifier.
// Uniqueness is effectively certain rather than cryptographically
// guaranteed, which is all the registry needs.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "run_" + strings.ReplaceAll(id.String(), "-", "")
}

// NewDeployID returns an identifier for a deployment of a completed run.
func NewDeployID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "deploy-" + strings.ReplaceAll(id.String(), "-", "")[:12]
}
