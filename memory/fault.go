package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// ErrUnclaimed is matched (with errors.Is) by access errors that contain at
// least one unclaimed sub-range.
var ErrUnclaimed = errors.New("memory: unclaimed")

// Cause is the reason a sub-range of an access failed.
type Cause int

// The failure causes.
const (
	// Unclaimed means no component claims the sub-range.
	Unclaimed Cause = iota

	// Faulted means the owning component reported an error.
	Faulted
)

func (c Cause) String() string {
	switch c {
	case Unclaimed:
		return "unclaimed"
	case Faulted:
		return "faulted"
	}

	return fmt.Sprintf("Cause(%d)", int(c))
}

// A RangeFault records why one sub-range of an access failed.
type RangeFault struct {
	Range Range
	Cause Cause

	// Owner and Err are only set for Faulted sub-ranges.
	Owner naming.ID
	Err   error
}

func (f RangeFault) String() string {
	if f.Cause == Unclaimed {
		return fmt.Sprintf("%s unclaimed", f.Range)
	}

	return fmt.Sprintf("%s faulted in %s: %v", f.Range, f.Owner, f.Err)
}

// An AccessError reports the sub-ranges of an access that failed. The bytes of
// the sub-ranges that are not listed were transferred successfully.
type AccessError struct {
	Space     AddressSpaceID
	Direction Direction
	Address   uint64
	Width     int

	// Faults are ordered by address and never overlap.
	Faults []RangeFault
}

func (e *AccessError) Error() string {
	parts := make([]string, 0, len(e.Faults))
	for _, f := range e.Faults {
		parts = append(parts, f.String())
	}

	return fmt.Sprintf("memory: %s of %d bytes at %#x in space %d failed: %s",
		e.Direction, e.Width, e.Address, e.Space, strings.Join(parts, "; "))
}

// Causes maps every failing sub-range to its cause.
func (e *AccessError) Causes() map[Range]Cause {
	causes := make(map[Range]Cause, len(e.Faults))
	for _, f := range e.Faults {
		causes[f.Range] = f.Cause
	}

	return causes
}

// Failed tells if the byte at addr is part of a failing sub-range.
func (e *AccessError) Failed(addr uint64) bool {
	for _, f := range e.Faults {
		if f.Range.Contains(addr) {
			return true
		}
	}

	return false
}

// Unwrap exposes ErrUnclaimed and the component errors to errors.Is and
// errors.As.
func (e *AccessError) Unwrap() []error {
	errs := make([]error, 0, len(e.Faults))
	unclaimed := false

	for _, f := range e.Faults {
		switch {
		case f.Cause == Unclaimed && !unclaimed:
			errs = append(errs, ErrUnclaimed)
			unclaimed = true
		case f.Cause == Faulted && f.Err != nil:
			errs = append(errs, f.Err)
		}
	}

	return errs
}

// An OverlapError is a construction fault raised when two claims of the same
// space and direction share bytes.
type OverlapError struct {
	First  Claim
	Second Claim
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("memory: %s claim %s by %s overlaps %s by %s in space %d",
		e.First.Direction,
		e.First.Range, e.First.Owner,
		e.Second.Range, e.Second.Owner,
		e.First.Space)
}

// OpenBus fills the failing bytes of buf with value. It is a helper for
// callers that choose the open-bus policy after a failed read.
func OpenBus(err error, addr uint64, buf []byte, value byte) {
	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		return
	}

	for i := range buf {
		if accessErr.Failed(addr + uint64(i)) {
			buf[i] = value
		}
	}
}
