package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sync"
)

// Hasher digests n items that may arrive in any order from concurrent
// goroutines. The resulting sum depends only on the items and their
// indices, never on the arrival order.
type Hasher struct {
	mut     sync.Mutex
	sha     hash.Hash
	ate     int
	pending [][32]byte
	present []bool
}

// NewHasher returns a Hasher expecting n items.
func NewHasher(n int) *Hasher {
	return &Hasher{
		sha:     sha256.New(),
		pending: make([][32]byte, n),
		present: make([]bool, n),
	}
}

// MustPutString records the item at index n. It panics when n was already
// put or is out of range.
func (h *Hasher) MustPutString(n int, value string) {
	h.MustPutHash(n, sha256.Sum256([]byte(value)))
}

// MustPutHash records a precomputed item digest at index n.
func (h *Hasher) MustPutHash(n int, value [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()

	if n < 0 || n >= len(h.present) {
		panic("hasher: index out of range")
	}
	if h.present[n] {
		panic("hasher: duplicate write")
	}
	h.pending[n] = value
	h.present[n] = true

	for h.ate < len(h.present) && h.present[h.ate] {
		h.eat()
	}
}

func (h *Hasher) eat() {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(h.ate))
	h.sha.Write(idx[:])
	h.sha.Write(h.pending[h.ate][:])
	h.ate++
}

// Sum returns the digest. Items never put are hashed as zero digests.
func (h *Hasher) Sum() (ret [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()
	for h.ate < len(h.present) {
		h.eat()
	}
	copy(ret[:], h.sha.Sum(nil))
	return
}
