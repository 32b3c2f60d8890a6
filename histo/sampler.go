package histo

import (
	"math/rand"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws from a registry with per-simulation generators, so a
// given seed yields an identical draw sequence regardless of what
// other simulations are doing.
type Sampler struct {
	r   *Registry
	rng *rand.Rand
	src *exprand.Rand
}

func NewSampler(r *Registry, seed uint64) *Sampler {
	return &Sampler{
		r:   r,
		rng: rand.New(rand.NewSource(int64(seed))),
		src: exprand.New(exprand.NewSource(seed)),
	}
}

// Rng exposes the integer generator for draws that need choice or
// permutation (e.g. DAG wiring), so one seed covers them too.
func (s *Sampler) Rng() *rand.Rand {
	return s.rng
}

func (s *Sampler) pick(h *Histogram) float64 {
	u := s.rng.Float64() * h.total
	return h.values[h.index(u)]
}

// DrawInt draws from a discrete distribution, with no jitter.
func (s *Sampler) DrawInt(name string) int {
	return int(s.pick(s.r.dist(name)))
}

// DrawCondInt draws from a conditional discrete distribution, with
// the conditioning value saturated at the loaded range.
func (s *Sampler) DrawCondInt(name string, k int) int {
	return int(s.pick(s.r.condDist(name, k)))
}

// Draw draws from a continuous distribution, jittered uniformly
// within the bin up to the next distinct value. The topmost bin is
// returned as-is.
func (s *Sampler) Draw(name string) float64 {
	h := s.r.dist(name)
	v := s.pick(h)
	if nv, ok := h.binUpper(v); ok {
		return distuv.Uniform{Min: v, Max: nv, Src: s.src}.Rand()
	}
	return v
}
