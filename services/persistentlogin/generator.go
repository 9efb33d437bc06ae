package persistentlogin

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

const randomBytes = 32

// Generator produces the opaque series and instance values. Output must be
// URL-safe and never contain ':'.
type Generator interface {
	Generate() (string, error)
}

// KeyedGenerator draws random bytes and MACs them with a keyed BLAKE2b, so a
// stored value cannot be reproduced from the random source alone.
type KeyedGenerator struct {
	key    []byte
	random io.Reader
}

// NewKeyedGenerator returns a generator keyed with secret. An empty secret is
// replaced with a random per-process key.
func NewKeyedGenerator(secret []byte) (*KeyedGenerator, error) {
	key := secret
	if len(key) == 0 {
		key = make([]byte, blake2b.Size)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("failed to generate generator key: %w", err)
		}
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &KeyedGenerator{key: key, random: rand.Reader}, nil
}

func (g *KeyedGenerator) Generate() (string, error) {
	raw := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.random, raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorFailed, err)
	}

	mac, err := blake2b.New256(g.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorFailed, err)
	}
	mac.Write([]byte(base64.RawURLEncoding.EncodeToString(raw)))

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
