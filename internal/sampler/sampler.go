// Package sampler decides which production extraction runs get a shadow
// review, and scores shadow runs against production output. Selection is
// deterministic per run so a re-ingested corpus produces the same review
// set.
package sampler

import (
	"hash/fnv"
	"math/rand"
)

// Rates are sampling fractions per confidence band.
type Rates struct {
	LowConfidence  float64 `yaml:"low_confidence" mapstructure:"low_confidence"`
	MidConfidence  float64 `yaml:"mid_confidence" mapstructure:"mid_confidence"`
	HighConfidence float64 `yaml:"high_confidence" mapstructure:"high_confidence"`
}

// DefaultRates reviews every low-confidence run, about one in ten
// mid-confidence runs, and a small trickle of high-confidence runs.
func DefaultRates() Rates {
	return Rates{LowConfidence: 1.0, MidConfidence: 0.10, HighConfidence: 0.03}
}

// Sampler selects production runs for shadow review.
type Sampler struct {
	rates Rates
}

func New(rates Rates) *Sampler {
	return &Sampler{rates: rates}
}

// Rate returns the sampling fraction for a run's confidence.
func (s *Sampler) Rate(confidence float64) float64 {
	switch {
	case confidence < 0.6:
		return s.rates.LowConfidence
	case confidence < 0.9:
		return s.rates.MidConfidence
	default:
		return s.rates.HighConfidence
	}
}

// ShouldReview reports whether the run with the given ID and confidence is
// selected for shadow review. The decision hashes the run ID, so it is
// stable across restarts and across processes.
func (s *Sampler) ShouldReview(runID string, confidence float64) bool {
	rate := s.Rate(confidence)
	if rate >= 1.0 {
		return true
	}
	if rate <= 0 {
		return false
	}

	h := fnv.New64a()
	h.Write([]byte(runID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return rng.Float64() < rate
}
