// Package memory implements the memory translation layer. It resolves which
// component owns each byte of every address space, independently for reads
// and writes, and splits accesses that span several owners.
package memory

import (
	"errors"
	"fmt"
)

// Errors reported by the memory translation layer.
var (
	ErrInvalidWidth      = errors.New("memory: invalid access width")
	ErrInvalidSpaceWidth = errors.New("memory: invalid address space width")
	ErrAddressOverflow   = errors.New("memory: access overflows address space")
	ErrUnknownSpace      = errors.New("memory: unknown address space")
)

// AddressSpaceID identifies one bus, e.g. the CPU bus or the video bus.
type AddressSpaceID uint16

// A Space describes one address space.
type Space struct {
	ID   AddressSpaceID
	Name string
	Bits uint8
}

// MaxAddress returns the highest valid address of the space.
func (s Space) MaxAddress() uint64 {
	if s.Bits >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << s.Bits) - 1
}

// Range returns the range covering the whole space.
func (s Space) Range() Range {
	return Range{Start: 0, End: s.MaxAddress()}
}

func (s Space) validate() error {
	if s.Bits == 0 || s.Bits > 64 {
		return fmt.Errorf("%w: space %q has %d bits",
			ErrInvalidSpaceWidth, s.Name, s.Bits)
	}

	return nil
}

// CheckAccess verifies that an access of n bytes at addr fits in the space
// and uses a valid width.
func (s Space) CheckAccess(addr uint64, n int) error {
	if !ValidWidth(n) {
		return fmt.Errorf("%w: %d bytes", ErrInvalidWidth, n)
	}

	last := addr + uint64(n) - 1
	if last < addr || last > s.MaxAddress() {
		return fmt.Errorf("%w: %d bytes at %#x in %q",
			ErrAddressOverflow, n, addr, s.Name)
	}

	return nil
}

// ValidWidth tells if n is one of the supported access widths: 1, 2, 4 or 8
// bytes.
func ValidWidth(n int) bool {
	switch n {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// Direction tells whether a claim or access is a read or a write.
type Direction int

// The access directions.
const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	}

	return fmt.Sprintf("Direction(%d)", int(d))
}
