package mechanisms

import (
	"math/rand"
	"time"
)

// RandSampler is the default variate sampler backed by math/rand. It is
// not safe for concurrent use; give each session or goroutine its own
// instance.
type RandSampler struct {
	randSource *rand.Rand
}

// NewRandSampler creates a sampler seeded with the given seed. A zero
// seed falls back to the wall clock.
func NewRandSampler(seed int64) *RandSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSampler{
		randSource: rand.New(rand.NewSource(seed)),
	}
}

// Uniform returns a deviate in the open interval (-0.5, 0.5).
// rand.Float64 yields [0, 1), so the shifted value lands in [-0.5, 0.5);
// the upper endpoint is already excluded and an exact -0.5 is redrawn.
func (s *RandSampler) Uniform() float64 {
	for {
		u := s.randSource.Float64() - 0.5
		if u != -0.5 {
			return u
		}
	}
}

// Normal returns a normal deviate with mean 0 and standard deviation
// sigma.
func (s *RandSampler) Normal(sigma float64) float64 {
	return s.randSource.NormFloat64() * sigma
}

// Seed reseeds the underlying generator.
func (s *RandSampler) Seed(seed int64) {
	s.randSource = rand.New(rand.NewSource(seed))
}
