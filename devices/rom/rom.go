// Package rom provides a read-only memory device. Writes to a ROM are not
// claimed, so they fault as unclaimed accesses.
package rom

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// StateVersion is the version of the saved state format.
const StateVersion = "1.0.0"

// ErrImageMismatch is returned when a saved state was taken with another
// image loaded.
var ErrImageMismatch = errors.New("rom: saved with a different image")

// Comp is a ROM chip mapped at a base address.
type Comp struct {
	*component.ComponentBase

	image []byte
	base  uint64
}

// ReadMemory reads from the image.
func (c *Comp) ReadMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	off := addr - c.base
	if off >= uint64(len(c.image)) || uint64(len(buf)) > uint64(len(c.image))-off {
		return fmt.Errorf("%w: %d bytes at %#x", memory.ErrBeyondCapacity, len(buf), addr)
	}

	copy(buf, c.image[off:])

	return nil
}

// Image returns the content of the ROM.
func (c *Comp) Image() []byte {
	return c.image
}

// StateVersion returns the version of the saved state format.
func (c *Comp) StateVersion() string {
	return StateVersion
}

// SaveState writes the image so that a restore can tell if the same image is
// loaded.
func (c *Comp) SaveState(w io.Writer) error {
	_, err := w.Write(c.image)
	return err
}

// LoadState checks that the saved image is the loaded one.
func (c *Comp) LoadState(r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if !bytes.Equal(data, c.image) {
		return fmt.Errorf("%w: %s", ErrImageMismatch, c.ID())
	}

	return nil
}

// Builder can build ROM components.
type Builder struct {
	space string
	base  uint64
	image []byte
}

// MakeBuilder returns a Builder mapping at address 0 of the "cpu" space.
func MakeBuilder() Builder {
	return Builder{space: "cpu"}
}

// WithSpace sets the address space the ROM is mapped in.
func (b Builder) WithSpace(space string) Builder {
	b.space = space
	return b
}

// WithBase sets the first mapped address.
func (b Builder) WithBase(base uint64) Builder {
	b.base = base
	return b
}

// WithImage sets the content of the ROM. The ROM is as large as its image.
func (b Builder) WithImage(image []byte) Builder {
	b.image = image
	return b
}

// Build creates the ROM and declares it on a.
func (b Builder) Build(a *builder.Assembly, id naming.ID) (*Comp, error) {
	if len(b.image) == 0 {
		return nil, fmt.Errorf("rom: %s has no image", id)
	}

	space, err := a.SpaceID(b.space)
	if err != nil {
		return nil, fmt.Errorf("rom: %s: %w", id, err)
	}

	c := &Comp{
		ComponentBase: component.NewComponentBase(id),
		image:         append([]byte(nil), b.image...),
		base:          b.base,
	}

	cb, err := a.Component(c)
	if err != nil {
		return nil, err
	}

	cb.Participation(timing.None).
		MapReadable(space, memory.NewRange(b.base, b.base+uint64(len(b.image))-1))

	return c, nil
}

// Factory returns a factory building ROMs with the settings of b.
func (b Builder) Factory() builder.Factory {
	return func(a *builder.Assembly, id naming.ID) error {
		_, err := b.Build(a, id)
		return err
	}
}
