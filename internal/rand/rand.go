package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// maxSafeID keeps ids inside the range a JSON number round-trips exactly
// through a float64 on the server side.
const maxSafeID = 1<<53 - 1

var defaultSource = newSource()

func newSource() *source {
	seed := make([]byte, 16)

	if _, err := cryptorand.Read(seed); err != nil {
		panic("unreachable")
	}

	return &source{
		//nolint:gosec // no security required
		rng: rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)),
	}
}

type source struct {
	mut sync.Mutex
	rng *rand.Rand
}

func (s *source) int64n(n int64) int64 {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.rng.Int64N(n)
}

// NewRequestID returns a positive JSON-RPC request id in [1, 2^53-1].
func NewRequestID() int64 {
	return defaultSource.int64n(maxSafeID) + 1
}
