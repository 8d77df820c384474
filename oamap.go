// Package oamap implements an open-addressed hash map from string keys to
// values of any type.
//
// All entries live directly in one flat slot array. Collisions are resolved
// by probing: linearly in small tables, quadratically (triangular offsets)
// in large power-of-two tables. The map resizes itself to keep its load
// factor inside a tiered Policy, rebuilding the slot array completely
// before the old one is dropped, so a failed resize never loses entries.
//
// Basic usage:
//
//	m, err := oamap.New[int](16, true)
//	if err != nil {
//		return err
//	}
//	if err := m.Set("apples", 3); err != nil {
//		return err
//	}
//	n, err := m.Get("apples")
//	if errors.Is(err, oamap.ErrItemNotFound) {
//		// absent
//	}
//
// A Map is owned by a single goroutine; it does no locking.
package oamap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Version is the library version.
const Version = "v0.1.0"

var (
	errEmptyKey       = errors.New("empty key")
	errNotInitialized = errors.New("map is not initialized")
	errCapacity       = errors.New("capacity out of range")
)

// noCopy may be embedded into structs which must not be copied
// after the first use. See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Map is an open-addressed hash map keyed by non-empty strings.
//
// The zero Map has no table: Set fails with KindInvalidArgument until Init
// is called. A Map must not be copied after first use.
type Map[V any] struct {
	_            noCopy
	table        *table[V]
	policy       Policy
	hash         HashFunc
	resizable    bool
	totalGrowths uint32
	totalShrinks uint32
}

// MapConfig defines configurable Map options.
type MapConfig struct {
	policy *Policy
	hash   HashFunc
}

// WithPolicy replaces DefaultPolicy with p. The policy is validated when
// the map is initialized.
func WithPolicy(p Policy) func(*MapConfig) {
	return func(c *MapConfig) {
		c.policy = &p
	}
}

// WithHasher replaces FNV1a with h. A nil h is ignored.
func WithHasher(h HashFunc) func(*MapConfig) {
	return func(c *MapConfig) {
		c.hash = h
	}
}

// New creates a map with a self-owned table of capacity slots. A map that
// is not resizable fails inserts with KindCapacityExhausted once every slot
// is occupied.
//
// A capacity above the policy's LinearProbeLimit probes quadratically only
// if it is a power of two; any other capacity probes linearly until the
// first resize rounds it up.
func New[V any](capacity int, resizable bool, options ...func(*MapConfig)) (*Map[V], error) {
	m := &Map[V]{}
	if err := m.Init(capacity, resizable, options...); err != nil {
		return nil, err
	}
	return m, nil
}

// NewWithSlots creates a map over caller-supplied storage. Every slot is
// reset to empty. The map never grows or shrinks slots in place and never
// releases them: a resize moves the entries into newly allocated,
// self-owned storage, after which slots is no longer used by the map.
func NewWithSlots[V any](slots []Slot[V], resizable bool, options ...func(*MapConfig)) (*Map[V], error) {
	m := &Map[V]{}
	if err := m.configure(resizable, options); err != nil {
		return nil, err
	}
	if len(slots) == 0 || len(slots) > m.policy.MaxCapacity {
		return nil, newError("init", "", KindInvalidArgument, errCapacity)
	}
	clear(slots)
	m.table = newTable(slots, m.policy.LinearProbeLimit, true)
	return m, nil
}

// Init (re)initializes the map with an empty self-owned table of capacity
// slots, dropping any previous table. It is the way to make a map usable
// again after Clear. A map that was initialized before keeps its policy and
// hasher unless options replace them. Capacities probe as described for New.
func (m *Map[V]) Init(capacity int, resizable bool, options ...func(*MapConfig)) error {
	if err := m.configure(resizable, options); err != nil {
		return err
	}
	if capacity <= 0 || capacity > m.policy.MaxCapacity {
		return newError("init", "", KindInvalidArgument, errCapacity)
	}
	slots, err := allocSlots[V](capacity)
	if err != nil {
		return err
	}
	m.table = newTable(slots, m.policy.LinearProbeLimit, false)
	m.totalGrowths, m.totalShrinks = 0, 0
	return nil
}

func (m *Map[V]) configure(resizable bool, options []func(*MapConfig)) error {
	var cfg MapConfig
	for _, opt := range options {
		opt(&cfg)
	}
	policy := DefaultPolicy()
	if m.hash != nil {
		// Already configured: start from the current settings.
		policy = m.Policy()
		if cfg.hash == nil {
			cfg.hash = m.hash
		}
	}
	if cfg.policy != nil {
		policy = *cfg.policy
		if err := policy.Validate(); err != nil {
			return err
		}
	}
	hash := cfg.hash
	if hash == nil {
		hash = FNV1a
	}
	m.policy = policy
	m.hash = hash
	m.resizable = resizable
	return nil
}

// locate finds the slot index of key: the home slot first, then the probe
// sequence.
func (m *Map[V]) locate(t *table[V], key string) (Digest, int, bool) {
	if t == nil || t.capacity() == 0 {
		return 0, -1, false
	}
	digest := m.hash(key)
	home := t.home(digest)
	if t.slots[home].holds(digest, key) {
		return digest, home, true
	}
	idx, ok := t.findByDigest(digest, key)
	return digest, idx, ok
}

// Set stores value under key, overwriting the value of an existing key.
//
// An insert that fills the table past the growth threshold of a resizable
// map triggers a grow. If that grow fails the entry is still stored and
// Set returns a *ResizeError.
func (m *Map[V]) Set(key string, value V) error {
	if key == "" {
		return newError("set", key, KindInvalidArgument, errEmptyKey)
	}
	t := m.table
	if t == nil || t.capacity() == 0 {
		return newError("set", key, KindInvalidArgument, errNotInitialized)
	}
	digest, idx, ok := m.locate(t, key)
	if ok {
		t.slots[idx].value = value
		return nil
	}

	if t.full() {
		if !m.resizable {
			return newError("set", key, KindCapacityExhausted, nil)
		}
		if err := m.resize(Grow); err != nil {
			return err
		}
		t = m.table
		if t.full() {
			return newError("set", key, KindCapacityExhausted, nil)
		}
	}

	idx, probes, ok := t.findFree(t.home(digest))
	if !ok {
		log.Criticalf("no free slot for %q: %d of %d slots occupied", key, t.occupied, t.capacity())
		return newError("set", key, KindProbeExhausted, nil)
	}
	t.place(idx, probes, digest, key, value)

	if m.resizable && m.policy.shouldGrow(t.occupied, t.capacity()) {
		if err := m.resize(Grow); err != nil {
			return &ResizeError{Direction: Grow, Err: err}
		}
	}
	return nil
}

// Get returns the value stored under key, or an error of KindItemNotFound.
func (m *Map[V]) Get(key string) (V, error) {
	s, err := m.entry("get", key)
	if err != nil {
		var zero V
		return zero, err
	}
	return s.value, nil
}

// Entry returns the slot holding key. The pointer is valid only until the
// next Set, Delete, Clear or Init: a resize moves every entry.
func (m *Map[V]) Entry(key string) (*Slot[V], error) {
	return m.entry("entry", key)
}

func (m *Map[V]) entry(op, key string) (*Slot[V], error) {
	if key == "" {
		return nil, newError(op, key, KindInvalidArgument, errEmptyKey)
	}
	t := m.table
	_, idx, ok := m.locate(t, key)
	if !ok {
		return nil, newError(op, key, KindItemNotFound, nil)
	}
	return &t.slots[idx], nil
}

// Has reports whether key is present. The empty key is never present.
func (m *Map[V]) Has(key string) bool {
	if key == "" {
		return false
	}
	_, _, ok := m.locate(m.table, key)
	return ok
}

// Delete removes key. A delete that drops the load factor to the shrink
// threshold of a resizable map triggers a shrink; if that shrink fails the
// key is still removed and Delete returns a *ResizeError.
func (m *Map[V]) Delete(key string) error {
	if key == "" {
		return newError("delete", key, KindInvalidArgument, errEmptyKey)
	}
	t := m.table
	_, idx, ok := m.locate(t, key)
	if !ok {
		return newError("delete", key, KindItemNotFound, nil)
	}
	t.slots[idx].reset()
	t.occupied--

	if m.resizable && m.policy.shouldShrink(t.occupied, t.capacity()) {
		if err := m.resize(Shrink); err != nil {
			return &ResizeError{Direction: Shrink, Err: err}
		}
	}
	return nil
}

// Clear releases the table. Len and Cap become zero and the map stays
// unusable for Set until Init is called. Caller-supplied storage is left
// as it is.
func (m *Map[V]) Clear() {
	if t := m.table; t != nil && !t.borrowed {
		clear(t.slots)
	}
	m.table = nil
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	if m.table == nil {
		return 0
	}
	return m.table.occupied
}

// Cap returns the number of slots in the current table.
func (m *Map[V]) Cap() int {
	if m.table == nil {
		return 0
	}
	return m.table.capacity()
}

// LoadFactor returns Len()/Cap(), or 0 for a map without a table.
func (m *Map[V]) LoadFactor() float64 {
	return loadFactor(m.Len(), m.Cap())
}

// Resizable reports whether the map grows and shrinks on its own.
func (m *Map[V]) Resizable() bool { return m.resizable }

// Borrowed reports whether the map still runs on caller-supplied storage.
func (m *Map[V]) Borrowed() bool {
	return m.table != nil && m.table.borrowed
}

// Policy returns a copy of the map's resize policy.
func (m *Map[V]) Policy() Policy {
	p := m.policy
	p.Tiers = append([]Tier(nil), p.Tiers...)
	return p
}

// Range calls yield for every entry in slot order until yield returns
// false. The order is unspecified and changes with every resize. The map
// must not be modified during Range.
func (m *Map[V]) Range(yield func(key string, value V) bool) {
	t := m.table
	if t == nil {
		return
	}
	for i := range t.slots {
		s := &t.slots[i]
		if s.state == slotOccupied {
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}

// All returns an iterator function for use with range-over-func.
//
//go:nosplit
func (m *Map[V]) All() func(yield func(string, V) bool) { return m.Range }

// Keys returns an iterator over the keys of the map.
func (m *Map[V]) Keys() func(yield func(string) bool) {
	return func(yield func(string) bool) {
		m.Range(func(key string, _ V) bool {
			return yield(key)
		})
	}
}

// Values returns an iterator over the values of the map.
func (m *Map[V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		m.Range(func(_ string, value V) bool {
			return yield(value)
		})
	}
}

// ToMap collects all entries into a map[string]V.
func (m *Map[V]) ToMap() map[string]V {
	a := make(map[string]V, m.Len())
	m.Range(func(key string, value V) bool {
		a[key] = value
		return true
	})
	return a
}

// String implements fmt.Stringer. At most 1024 entries are printed.
func (m *Map[V]) String() string {
	const limit = 1024
	a := make(map[string]V, min(m.Len(), limit))
	m.Range(func(key string, value V) bool {
		a[key] = value
		return len(a) < limit
	})
	return strings.Replace(fmt.Sprint(a), "map[", "Map[", 1)
}

// Clone returns an independent copy of the map with the same policy,
// hasher and slot layout. The copy always owns its storage.
func (m *Map[V]) Clone() (*Map[V], error) {
	clone := &Map[V]{
		policy:    m.Policy(),
		hash:      m.hash,
		resizable: m.resizable,
	}
	t := m.table
	if t == nil {
		return clone, nil
	}
	slots, err := allocSlots[V](t.capacity())
	if err != nil {
		return nil, err
	}
	copy(slots, t.slots)
	clone.table = &table[V]{
		slots:    slots,
		occupied: t.occupied,
		maxProbe: t.maxProbe,
		probe:    t.probe,
	}
	return clone, nil
}

var (
	jsonMarshal   func(v any) ([]byte, error)
	jsonUnmarshal func(data []byte, v any) error
)

// SetDefaultJSONMarshal sets the default JSON serialization and deserialization functions.
// If not set, the standard library is used by default.
func SetDefaultJSONMarshal(marshal func(v any) ([]byte, error), unmarshal func(data []byte, v any) error) {
	jsonMarshal, jsonUnmarshal = marshal, unmarshal
}

// MarshalJSON encodes the map as a JSON object.
func (m *Map[V]) MarshalJSON() ([]byte, error) {
	if jsonMarshal != nil {
		return jsonMarshal(m.ToMap())
	}
	return json.Marshal(m.ToMap())
}

// UnmarshalJSON sets every member of a JSON object into the map. A map
// without a table is first initialized as a resizable map sized for the
// object, keeping any policy and hasher it already has.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	var a map[string]V
	if jsonUnmarshal != nil {
		if err := jsonUnmarshal(data, &a); err != nil {
			return err
		}
	} else {
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
	}
	if m.table == nil {
		if err := m.Init(max(len(a), 1), true); err != nil {
			return err
		}
	}
	for k, v := range a {
		if err := m.Set(k, v); !Committed(err) {
			return err
		}
	}
	return nil
}
