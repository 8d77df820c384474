package oamap

type slotState uint8

const (
	// slotEmpty is the zero value so that freshly allocated slot arrays
	// need no initialization.
	slotEmpty slotState = iota
	slotOccupied
)

// Slot is one cell of the flat slot array. The zero Slot is empty.
//
// A *Slot returned by Map.Entry points into the map's current table and is
// valid only until the next mutating call on the map.
type Slot[V any] struct {
	state  slotState
	digest Digest
	key    string
	value  V
}

// Occupied reports whether the slot holds an entry.
func (s *Slot[V]) Occupied() bool { return s.state == slotOccupied }

// Key returns the slot's key, or "" for an empty slot.
func (s *Slot[V]) Key() string { return s.key }

// Value returns the slot's value, or the zero V for an empty slot.
func (s *Slot[V]) Value() V { return s.value }

// Digest returns the stored digest of the slot's key.
func (s *Slot[V]) Digest() Digest { return s.digest }

func (s *Slot[V]) fill(digest Digest, key string, value V) {
	s.state = slotOccupied
	s.digest = digest
	s.key = key
	s.value = value
}

func (s *Slot[V]) reset() {
	*s = Slot[V]{}
}

func (s *Slot[V]) holds(digest Digest, key string) bool {
	return s.state == slotOccupied && s.digest == digest && s.key == key
}

// table is a fixed-length slot array. It has no resizing policy of its own.
type table[V any] struct {
	slots    []Slot[V]
	occupied int
	// maxProbe is the longest probe distance at which an entry was placed
	// since the table was built. Lookups never need to look further.
	maxProbe int
	probe    probeKind
	// borrowed marks caller-supplied storage: it is never grown in place
	// and never released by the map.
	borrowed bool
}

func newTable[V any](slots []Slot[V], linearLimit int, borrowed bool) *table[V] {
	return &table[V]{
		slots:    slots,
		probe:    probeKindFor(len(slots), linearLimit),
		borrowed: borrowed,
	}
}

//go:nosplit
func (t *table[V]) capacity() int { return len(t.slots) }

//go:nosplit
func (t *table[V]) full() bool { return t.occupied >= len(t.slots) }

//go:nosplit
func (t *table[V]) home(digest Digest) int {
	return int(uint64(digest) % uint64(len(t.slots)))
}

// allocSlots allocates a self-owned slot array. Allocations the runtime
// refuses with a recoverable panic surface as AllocationFailure.
func allocSlots[V any](n int) (slots []Slot[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			slots = nil
			err = newError("alloc", "", KindAllocationFailure, panicError(r))
		}
	}()
	return make([]Slot[V], n), nil
}
