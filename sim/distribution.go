package sim

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// A Distribution samples virtual-time deltas for stochastic process
// schedules. Samples are clamped to be non-negative, since a delta always
// moves time forward.
type Distribution interface {
	Sample() VTime
}

type distribution struct {
	dist interface{ Rand() float64 }
}

func (d distribution) Sample() VTime {
	v := d.dist.Rand()
	if v < 0 {
		v = 0
	}

	return VTime(v)
}

// NewExponential returns an exponential inter-arrival distribution with the
// given rate, seeded deterministically.
func NewExponential(rate float64, seed uint64) Distribution {
	return distribution{dist: distuv.Exponential{
		Rate: rate,
		Src:  rand.NewSource(seed),
	}}
}

// NewUniform returns a uniform distribution over [min, max), seeded
// deterministically.
func NewUniform(min, max float64, seed uint64) Distribution {
	return distribution{dist: distuv.Uniform{
		Min: min,
		Max: max,
		Src: rand.NewSource(seed),
	}}
}

// NewGamma returns a gamma distribution with shape alpha and rate beta,
// seeded deterministically.
func NewGamma(alpha, beta float64, seed uint64) Distribution {
	return distribution{dist: distuv.Gamma{
		Alpha: alpha,
		Beta:  beta,
		Src:   rand.NewSource(seed),
	}}
}

// NewLogNormal returns a log-normal distribution with location mu and scale
// sigma, seeded deterministically.
func NewLogNormal(mu, sigma float64, seed uint64) Distribution {
	return distribution{dist: distuv.LogNormal{
		Mu:    mu,
		Sigma: sigma,
		Src:   rand.NewSource(seed),
	}}
}

// NewPoisson returns a Poisson distribution with mean lambda, seeded
// deterministically.
func NewPoisson(lambda float64, seed uint64) Distribution {
	return distribution{dist: distuv.Poisson{
		Lambda: lambda,
		Src:    rand.NewSource(seed),
	}}
}
