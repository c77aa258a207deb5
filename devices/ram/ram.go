// Package ram provides a readable and writable memory device.
package ram

import (
	"io"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// StateVersion is the version of the saved state format.
const StateVersion = "1.0.0"

// Comp is a RAM chip mapped at a base address.
type Comp struct {
	*component.ComponentBase

	Storage *memory.Storage
	base    uint64
}

// Base returns the first address the RAM is mapped at.
func (c *Comp) Base() uint64 {
	return c.base
}

// ReadMemory reads from the storage.
func (c *Comp) ReadMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	return c.Storage.Read(addr-c.base, buf)
}

// WriteMemory writes to the storage.
func (c *Comp) WriteMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	return c.Storage.Write(addr-c.base, buf)
}

// StateVersion returns the version of the saved state format.
func (c *Comp) StateVersion() string {
	return StateVersion
}

// SaveState writes the whole content of the RAM.
func (c *Comp) SaveState(w io.Writer) error {
	_, err := w.Write(c.Storage.Bytes())
	return err
}

// LoadState replaces the content of the RAM.
func (c *Comp) LoadState(r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	return c.Storage.Load(data)
}

func newComp(id naming.ID, base uint64, storage *memory.Storage) *Comp {
	return &Comp{
		ComponentBase: component.NewComponentBase(id),
		Storage:       storage,
		base:          base,
	}
}
