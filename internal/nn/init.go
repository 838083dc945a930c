package nn

import (
	"math"
	"math/rand"
)

// XavierBound returns the Glorot uniform bound sqrt(6/(fanIn+fanOut)).
func XavierBound(fanIn, fanOut int) float64 {
	return math.Sqrt(6.0 / float64(fanIn+fanOut))
}

// Uniform fills dst with values drawn uniformly from [-bound, bound].
func Uniform(rng *rand.Rand, dst []float64, bound float64) {
	for i := range dst {
		dst[i] = (rng.Float64()*2 - 1) * bound
	}
}

// Xavier fills dst with Glorot uniform values.
func Xavier(rng *rand.Rand, dst []float64, fanIn, fanOut int) {
	Uniform(rng, dst, XavierBound(fanIn, fanOut))
}

// newRand returns rng, or a time-seeded generator when rng is nil.
func newRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // weight init is not security sensitive
}
