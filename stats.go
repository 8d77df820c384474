package oamap

import (
	"fmt"
	"strings"
	"unsafe"
)

// Stats returns statistics for the Map. It walks the probe sequence of
// every entry, so it should be used only for diagnostics or debugging
// purposes.
func (m *Map[V]) Stats() *MapStats {
	stats := &MapStats{
		Resizable:    m.resizable,
		TotalGrowths: m.totalGrowths,
		TotalShrinks: m.totalShrinks,
	}
	t := m.table
	if t == nil {
		return stats
	}
	stats.Borrowed = t.borrowed
	stats.Capacity = t.capacity()
	stats.Counter = t.occupied
	stats.ProbeKind = t.probe.String()
	stats.LoadFactor = loadFactor(t.occupied, t.capacity())
	if len(m.policy.Tiers) > 0 {
		tier := m.policy.tierFor(t.capacity())
		stats.GrowAt, stats.ShrinkAt = tier.GrowAt, tier.ShrinkAt
	}
	slotSize := int(unsafe.Sizeof(Slot[V]{}))
	stats.SlotBytes = slotSize * t.capacity()
	stats.CacheLines = (stats.SlotBytes + int(CacheLineSize) - 1) / int(CacheLineSize)

	totalProbes := 0
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != slotOccupied {
			stats.EmptySlots++
			continue
		}
		stats.Size++
		_, probes, ok := t.lookup(s.digest, s.key)
		if !ok {
			stats.Unreachable++
			continue
		}
		if probes == 1 {
			stats.HomeHits++
		}
		totalProbes += probes
		stats.MaxProbeLength = max(stats.MaxProbeLength, probes)
	}
	if reachable := stats.Size - stats.Unreachable; reachable > 0 {
		stats.MeanProbeLength = float64(totalProbes) / float64(reachable)
	}
	return stats
}

// MapStats is Map statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type MapStats struct {
	// Capacity is the number of slots in the table.
	Capacity int
	// Size is the number of occupied slots found by scanning the table.
	Size int
	// Counter is the occupied count the map maintains. It always equals
	// Size unless the table is corrupt.
	Counter int
	// EmptySlots is the number of empty slots.
	EmptySlots int
	// LoadFactor is Counter/Capacity.
	LoadFactor float64
	// GrowAt and ShrinkAt are the thresholds of the tier the current
	// capacity falls into.
	GrowAt   float64
	ShrinkAt float64
	// ProbeKind is "linear" or "triangular".
	ProbeKind string
	// HomeHits is the number of entries stored at their home index.
	HomeHits int
	// MaxProbeLength is the largest number of slots a lookup of a stored
	// key inspects.
	MaxProbeLength int
	// MeanProbeLength is the average number of slots a lookup of a stored
	// key inspects.
	MeanProbeLength float64
	// Unreachable counts stored entries a lookup cannot find. Always zero
	// unless the table is corrupt.
	Unreachable int
	// SlotBytes is the memory footprint of the slot array.
	SlotBytes int
	// CacheLines is the number of cache lines the slot array spans.
	CacheLines int
	// Resizable reports whether the map resizes itself.
	Resizable bool
	// Borrowed reports whether the table is caller-supplied storage.
	Borrowed bool
	// TotalGrowths is the number of times the table grew.
	TotalGrowths uint32
	// TotalShrinks is the number of times the table shrank.
	TotalShrinks uint32
}

// ToString returns string representation of map stats.
func (s *MapStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("MapStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:        %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("Size:            %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counter:         %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("EmptySlots:      %d\n", s.EmptySlots))
	sb.WriteString(fmt.Sprintf("LoadFactor:      %.3f\n", s.LoadFactor))
	sb.WriteString(fmt.Sprintf("GrowAt:          %.2f\n", s.GrowAt))
	sb.WriteString(fmt.Sprintf("ShrinkAt:        %.2f\n", s.ShrinkAt))
	sb.WriteString(fmt.Sprintf("ProbeKind:       %s\n", s.ProbeKind))
	sb.WriteString(fmt.Sprintf("HomeHits:        %d\n", s.HomeHits))
	sb.WriteString(fmt.Sprintf("MaxProbeLength:  %d\n", s.MaxProbeLength))
	sb.WriteString(fmt.Sprintf("MeanProbeLength: %.3f\n", s.MeanProbeLength))
	sb.WriteString(fmt.Sprintf("Unreachable:     %d\n", s.Unreachable))
	sb.WriteString(fmt.Sprintf("SlotBytes:       %d\n", s.SlotBytes))
	sb.WriteString(fmt.Sprintf("CacheLines:      %d\n", s.CacheLines))
	sb.WriteString(fmt.Sprintf("Resizable:       %t\n", s.Resizable))
	sb.WriteString(fmt.Sprintf("Borrowed:        %t\n", s.Borrowed))
	sb.WriteString(fmt.Sprintf("TotalGrowths:    %d\n", s.TotalGrowths))
	sb.WriteString(fmt.Sprintf("TotalShrinks:    %d\n", s.TotalShrinks))
	sb.WriteString("}\n")
	return sb.String()
}
