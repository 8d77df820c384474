package oamap

import (
	"github.com/cespare/xxhash/v2"
)

// Digest is the integer fingerprint of a key. Distinct keys may share a
// digest; the map disambiguates them by the stored key.
type Digest uint64

// HashFunc maps a key to its digest. It must be pure and deterministic:
// equal keys always produce equal digests.
type HashFunc func(key string) Digest

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// FNV1a is the default HashFunc: 64-bit FNV-1a over every byte of the key.
func FNV1a(key string) Digest {
	h := uint64(fnvOffset64)
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= fnvPrime64
	}
	return Digest(h)
}

// XXHash hashes the key with xxHash64.
func XXHash(key string) Digest {
	return Digest(xxhash.Sum64String(key))
}

// hasherByName resolves the hasher names accepted by the command line.
var hasherByName = map[string]HashFunc{
	"fnv1a":  FNV1a,
	"xxhash": XXHash,
}

// HasherByName returns a built-in HashFunc by name ("fnv1a" or "xxhash").
func HasherByName(name string) (HashFunc, bool) {
	h, ok := hasherByName[name]
	return h, ok
}
