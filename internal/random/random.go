package random

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// Random is the source of randomness for bots.
type Random interface {
	// Intn returns an int in [0, n).
	Intn(n int) int
}

type CryptoRandom struct{}

func New() CryptoRandom { return CryptoRandom{} }

func (CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// Sequence replays fixed values, cycling when exhausted. Used in tests.
type Sequence struct {
	Values []int

	mu   sync.Mutex
	next int
}

func (s *Sequence) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Values) == 0 || n <= 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v % n
}
