package oamap

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is the CPU cache line size in bytes, used to report how
// many cache lines a slot array spans.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
