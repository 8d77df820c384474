package oamap

import (
	"time"
)

// Direction is the direction of a resize.
type Direction uint8

const (
	Grow Direction = iota + 1
	Shrink
)

func (d Direction) String() string {
	switch d {
	case Grow:
		return "grow"
	case Shrink:
		return "shrink"
	default:
		return "resize"
	}
}

// resize rebuilds the table at the capacity the policy chooses for
// direction. The new table is populated completely before it replaces the
// old one; on failure the map keeps its current table and every entry.
//
// The new table is always self-owned, so a map over borrowed storage moves
// into its own storage on the first resize and leaves the caller's slots
// untouched.
func (m *Map[V]) resize(direction Direction) error {
	old := m.table
	oldCap := old.capacity()

	var newCap int
	switch direction {
	case Grow:
		newCap = m.policy.growCapacity(oldCap)
		if newCap <= oldCap {
			log.Warningf("grow skipped: capacity %d is at the limit %d", oldCap, m.policy.MaxCapacity)
			return nil
		}
	case Shrink:
		newCap = m.policy.shrinkCapacity(old.occupied, oldCap)
		if newCap >= oldCap {
			return nil
		}
	default:
		return newError("resize", "", KindInvalidArgument, nil)
	}

	start := time.Now()
	t, err := m.rehome(old, newCap)
	if err != nil {
		log.Errorf("%s %d -> %d failed, keeping current table: %v", direction, oldCap, newCap, err)
		return err
	}
	if !old.borrowed {
		clear(old.slots)
	}
	m.table = t
	switch direction {
	case Grow:
		m.totalGrowths++
	case Shrink:
		m.totalShrinks++
	}
	log.Debugf("%s %d -> %d (%d entries, %s probing) in %s",
		direction, oldCap, newCap, t.occupied, t.probe, time.Since(start))
	return nil
}

// rehome allocates a table of newCap slots and moves every occupied slot
// of old into it, seeded at digest mod newCap. old is only read.
func (m *Map[V]) rehome(old *table[V], newCap int) (*table[V], error) {
	if newCap < old.occupied {
		return nil, newError("resize", "", KindProbeExhausted, errCapacityBelowOccupied)
	}
	slots, err := allocSlots[V](newCap)
	if err != nil {
		return nil, err
	}
	t := newTable(slots, m.policy.LinearProbeLimit, false)
	for i := range old.slots {
		s := &old.slots[i]
		if s.state != slotOccupied {
			continue
		}
		idx, probes, ok := t.findFree(t.home(s.digest))
		if !ok {
			log.Criticalf("no free slot for %q while rehoming into %d slots (%d placed)", s.key, newCap, t.occupied)
			return nil, newError("resize", s.key, KindProbeExhausted, nil)
		}
		t.place(idx, probes, s.digest, s.key, s.value)
	}
	return t, nil
}
