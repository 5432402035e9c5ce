package dummy

import (
	"math/rand/v2"
	"sync"
	"time"
)

// source is a mutex-guarded random generator plus clock, shared by the
// simulated adapters so tests can pin both.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func newSource() *source {
	return &source{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
}

// uniform returns a value in [lo, hi).
func (s *source) uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *source) chance(p float64) bool {
	return s.uniform(0, 1) < p
}

// solarFactor is 1 at 13:00 and falls linearly to 0 seven hours either side.
// Outside the open production window (start, end) it is 0.
func solarFactor(t time.Time, start, end int) float64 {
	hour := t.Hour()
	if hour <= start || hour >= end {
		return 0
	}
	d := float64(hour) - 13
	if d < 0 {
		d = -d
	}
	return max(0, 1-d/7)
}
