package oamap

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind classifies map failures.
type Kind uint8

const (
	// KindInvalidArgument: empty key, zero or over-limit capacity, or an
	// operation on a map that was cleared and not re-initialized.
	KindInvalidArgument Kind = iota + 1
	// KindCapacityExhausted: the table is full and the map may not grow.
	KindCapacityExhausted
	// KindItemNotFound: the key is absent.
	KindItemNotFound
	// KindAllocationFailure: a slot array could not be allocated.
	KindAllocationFailure
	// KindProbeExhausted: a full probe pass found no free slot although
	// one was expected. This is an internal invariant violation and is
	// never retried.
	KindProbeExhausted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindCapacityExhausted:
		return "capacity exhausted"
	case KindItemNotFound:
		return "item not found"
	case KindAllocationFailure:
		return "allocation failure"
	case KindProbeExhausted:
		return "probe exhausted"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Sentinel errors, one per Kind. Any *Error matches the sentinel of its
// kind under errors.Is.
var (
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrCapacityExhausted = &Error{Kind: KindCapacityExhausted}
	ErrItemNotFound      = &Error{Kind: KindItemNotFound}
	ErrAllocationFailure = &Error{Kind: KindAllocationFailure}
	ErrProbeExhausted    = &Error{Kind: KindProbeExhausted}
)

var errCapacityBelowOccupied = errors.New("target capacity cannot hold every entry")

// Error is the error type returned by map operations.
type Error struct {
	Op   string
	Key  string
	Kind Kind
	Err  error
}

func newError(op, key string, kind Kind, err error) *Error {
	return &Error{Op: op, Key: key, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "oamap: " + e.Kind.String()
	}
	msg := "oamap: " + e.Op
	if e.Key != "" {
		msg += " " + strconv.Quote(e.Key)
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or 0 if err is not a map error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ResizeError reports a failed self-triggered resize. The Set or Delete
// that returned it has already taken effect, and the map still holds every
// entry in its previous table.
type ResizeError struct {
	Direction Direction
	Err       error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("oamap: %s failed, entry committed: %v", e.Direction, e.Err)
}

func (e *ResizeError) Unwrap() error { return e.Err }

// Committed reports whether err leaves the triggering mutation in effect.
func Committed(err error) bool {
	var re *ResizeError
	return err == nil || errors.As(err, &re)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
