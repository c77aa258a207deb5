package memory

import (
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// ReadFunc fills buf with the bytes starting at addr. The address is absolute
// within the address space. Returning an error marks the whole sub-range as
// faulted.
type ReadFunc func(addr uint64, buf []byte) error

// WriteFunc stores buf at addr. The address is absolute within the address
// space.
type WriteFunc func(addr uint64, buf []byte) error

// A Claim is the exclusive registration of a byte range of one address space
// and one direction by a component.
type Claim struct {
	Space     AddressSpaceID
	Direction Direction
	Range     Range
	Owner     naming.ID

	// Read must be set for Read claims.
	Read ReadFunc

	// Write must be set for Write claims.
	Write WriteFunc
}

func (c Claim) String() string {
	return fmt.Sprintf("%s %s of space %d by %s",
		c.Direction, c.Range, c.Space, c.Owner)
}

func (c Claim) less(o Claim) bool {
	if c.Space != o.Space {
		return c.Space < o.Space
	}

	if c.Direction != o.Direction {
		return c.Direction < o.Direction
	}

	if c.Range.Start != o.Range.Start {
		return c.Range.Start < o.Range.Start
	}

	if c.Range.End != o.Range.End {
		return c.Range.End < o.Range.End
	}

	return c.Owner < o.Owner
}

func (c Claim) sameLane(o Claim) bool {
	return c.Space == o.Space && c.Direction == o.Direction
}
