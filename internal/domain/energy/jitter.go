package energy

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// FoodJitterBound is the relative variation applied to a farm's food output.
const FoodJitterBound = 0.20

// Jitter multiplies values by (1 + U(-b, b)). Each Jitter owns a randomly
// seeded source, so it must only be used from one goroutine at a time.
// A zero Jitter returns values unchanged.
type Jitter struct {
	// dist samples the relative offset.
	dist distuv.Uniform
	// bound is b; zero disables variation.
	bound float64
}

// NewJitter returns a Jitter with half-width bound.
func NewJitter(bound float64) Jitter {
	if bound <= 0 {
		return Jitter{}
	}

	return Jitter{
		dist: distuv.Uniform{
			Min: -bound,
			Max: bound,
			Src: rand.NewPCG(rand.Uint64(), rand.Uint64()),
		},
		bound: bound,
	}
}

// Bound returns the half-width of the variation.
func (j Jitter) Bound() float64 {
	return j.bound
}

// Apply returns base scaled by a fresh sample.
func (j Jitter) Apply(base float64) float64 {
	if j.bound <= 0 {
		return base
	}

	return base * (1 + j.dist.Rand())
}
