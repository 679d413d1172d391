package zmachine

import (
	"math/rand"
	"time"
)

// rngState implements the Z-machine random opcode's two modes: a
// seeded, deterministic "predictable" mode used by test suites and
// walkthroughs, and a normal mode backed by a platform RNG.
type rngState struct {
	predictable bool
	predictableN uint16
	predictableNext uint16
	source *rand.Rand
}

func (r *rngState) reseed() {
	r.source = rand.New(rand.NewSource(time.Now().UnixNano()))
	r.predictable = false
}

// Random implements the `random` opcode: n == 0 reseeds from entropy
// and returns 0; n > 0 returns a uniform value in [1, n]; n < 0
// switches mode — if -n < 1000, predictable mode producing
// 1, 2, …, -n, 1, 2, … ; otherwise a seeded generator using -n as the
// seed.
func (r *rngState) Random(n int16) uint16 {
	switch {
	case n == 0:
		r.reseed()
		return 0
	case n > 0:
		if r.predictable {
			return r.nextPredictable()
		}
		return uint16(r.source.Intn(int(n)) + 1)
	default:
		seed := -int32(n)
		if seed < 1000 {
			r.predictable = true
			r.predictableN = uint16(seed)
			r.predictableNext = 1
		} else {
			r.predictable = false
			r.source = rand.New(rand.NewSource(int64(seed)))
		}
		return 0
	}
}

func (r *rngState) nextPredictable() uint16 {
	if r.predictableN == 0 {
		return 0
	}
	v := r.predictableNext
	r.predictableNext++
	if r.predictableNext > r.predictableN {
		r.predictableNext = 1
	}
	return v
}
