package sim

import (
	"hash/fnv"
	"math/rand"
)

// PartitionedRNG provides deterministic, isolated random number streams per
// named subsystem of a run. Two runs with the same seed draw identical
// streams; two subsystems within one run draw independent streams, so adding
// a consumer of randomness in one subsystem does not perturb another.
//
// Not safe for concurrent use. Within a run this is never an issue because
// execution is cooperative.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a run seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the deterministically-seeded generator for the named
// subsystem. The same name always returns the same generator instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng

	return rng
}

// Seed returns the run seed this generator was created from.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
