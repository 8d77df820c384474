package oamap

import (
	"math/bits"
)

// probeKind selects the probe sequence of a table.
//
// Small tables probe linearly: the run of neighbouring slots stays within a
// few cache lines and clustering is cheap to walk. Large tables probe
// quadratically to break up primary clusters. The quadratic sequence uses
// triangular offsets (0, 1, 3, 6, 10, ...), which visit every slot of a
// power-of-two table exactly once in capacity steps. Tables whose capacity
// is not a power of two always probe linearly.
type probeKind uint8

const (
	probeLinear probeKind = iota
	probeTriangular
)

func (k probeKind) String() string {
	switch k {
	case probeLinear:
		return "linear"
	case probeTriangular:
		return "triangular"
	default:
		return "unknown"
	}
}

func probeKindFor(capacity, linearLimit int) probeKind {
	if capacity <= linearLimit || !isPowOf2(capacity) {
		return probeLinear
	}
	return probeTriangular
}

//go:nosplit
func isPowOf2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// probeSeq walks the slot indices of a table starting at a home index.
type probeSeq struct {
	pos      int
	step     int
	capacity int
	kind     probeKind
}

func makeProbeSeq(start, capacity int, kind probeKind) probeSeq {
	return probeSeq{pos: start, capacity: capacity, kind: kind}
}

//go:nosplit
func (s *probeSeq) next() {
	if s.kind == probeTriangular {
		s.step++
		s.pos = (s.pos + s.step) & (s.capacity - 1)
		return
	}
	s.pos++
	if s.pos == s.capacity {
		s.pos = 0
	}
}

// walk visits at most limit slots (never more than capacity) along the
// table's probe sequence from start, stopping at the first index for which
// match returns true. It returns the index, the number of slots inspected,
// and whether a match was found.
func (t *table[V]) walk(start, limit int, match func(i int) bool) (idx, probes int, ok bool) {
	capacity := len(t.slots)
	if capacity == 0 {
		return -1, 0, false
	}
	limit = min(limit, capacity)
	s := makeProbeSeq(start, capacity, t.probe)
	for probes < limit {
		probes++
		if match(s.pos) {
			return s.pos, probes, true
		}
		s.next()
	}
	return -1, probes, false
}

// lookup locates the slot holding key. Empty slots do not end the scan:
// deletion leaves no tombstone, so a chain may have holes. Instead the scan
// stops after maxProbe slots, the longest distance any entry of this table
// was placed from its home; entries never move until the next rebuild.
func (t *table[V]) lookup(digest Digest, key string) (idx, probes int, ok bool) {
	if len(t.slots) == 0 {
		return -1, 0, false
	}
	return t.walk(t.home(digest), t.maxProbe, func(i int) bool {
		return t.slots[i].holds(digest, key)
	})
}

// findByDigest returns the index of the occupied slot whose digest and key
// match, starting at the home index of digest.
func (t *table[V]) findByDigest(digest Digest, key string) (int, bool) {
	idx, _, ok := t.lookup(digest, key)
	return idx, ok
}

// findFree returns the first empty slot along the probe sequence from
// start, and how many slots it inspected to get there.
func (t *table[V]) findFree(start int) (idx, probes int, ok bool) {
	return t.walk(start, len(t.slots), func(i int) bool {
		return t.slots[i].state == slotEmpty
	})
}

// place stores an entry into the free slot idx found after probes
// inspections.
func (t *table[V]) place(idx, probes int, digest Digest, key string, value V) {
	t.slots[idx].fill(digest, key, value)
	t.occupied++
	t.maxProbe = max(t.maxProbe, probes)
}
