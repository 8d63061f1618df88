package cards

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// RNG is a cryptographically-seeded counter-mode stream used for shuffles
// and shoe construction. It is safe for concurrent use.
type RNG struct {
	cipher  cipher.Block
	counter uint64
	mu      sync.Mutex
}

// NewRNG seeds a fresh RNG from the system CSPRNG.
func NewRNG() (*RNG, error) {
	seed := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("cards: seed read: %w", err)
	}
	return newRNGFromSeed(seed)
}

// NewSeededRNG builds a deterministic RNG from an arbitrary seed, expanding
// or truncating to the AES-256 key size via SHA-256. Used by tests that need
// byte-identical replays of a command sequence (spec §8 replay law).
func NewSeededRNG(seed []byte) (*RNG, error) {
	return newRNGFromSeed(seed)
}

func newRNGFromSeed(seed []byte) (*RNG, error) {
	key := seed
	if len(key) != 32 {
		h := sha256.Sum256(seed)
		key = h[:]
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cards: cipher init: %w", err)
	}
	return &RNG{cipher: block}, nil
}

// Uint64 returns the next counter-mode pseudorandom value.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Pure counter-mode block: deterministic given the seed, so a fixed
	// seed replays byte-identical sequences (spec §8 replay law).
	in := make([]byte, 16)
	binary.BigEndian.PutUint64(in[8:], r.counter)
	r.counter++

	out := make([]byte, 16)
	r.cipher.Encrypt(out, in)
	return binary.BigEndian.Uint64(out[:8])
}

// Intn returns a value in [0, n). Panics if n <= 0, matching math/rand.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		panic("cards: Intn called with n <= 0")
	}
	return int(r.Uint64() % uint64(n))
}

// Float64 returns a value in [0, 1) with a resolution of one millionth.
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()%1_000_000) / 1_000_000
}
