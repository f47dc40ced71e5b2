package bootstrap

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// newIterationRand derives an independent generator for one bootstrap
// iteration as a pure function of (base seed, iteration index). Workers never
// share a generator, so completion order cannot perturb reproducibility.
func newIterationRand(baseSeed int64, iteration int) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(baseSeed))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(iteration))
	hi := xxhash.Sum64(buf[:])
	buf[0] ^= 0xA5
	lo := xxhash.Sum64(buf[:])
	return rand.New(rand.NewPCG(hi, lo))
}
