// Package cartridge provides a bank switched cartridge. The cartridge itself
// only holds storage and has no capabilities; its mapper is the component
// that answers the bus.
package cartridge

import (
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// Comp is the storage of a cartridge, split in banks of equal size.
type Comp struct {
	*component.ComponentBase

	Storage  *memory.Storage
	bankSize uint64
	banks    int
}

func newComp(id naming.ID, image []byte, bankSize uint64) (*Comp, error) {
	if bankSize == 0 {
		return nil, fmt.Errorf("cartridge: %s has a zero bank size", id)
	}

	if len(image) == 0 {
		return nil, fmt.Errorf("cartridge: %s has no image", id)
	}

	banks := (uint64(len(image)) + bankSize - 1) / bankSize
	if banks > 256 {
		return nil, fmt.Errorf("cartridge: %s has %d banks, at most 256 are "+
			"addressable", id, banks)
	}

	storage := memory.NewStorage(banks * bankSize).WithFill(0xff)
	if err := storage.Load(image); err != nil {
		return nil, err
	}

	return &Comp{
		ComponentBase: component.NewComponentBase(id),
		Storage:       storage,
		bankSize:      bankSize,
		banks:         int(banks),
	}, nil
}

// Banks returns the number of banks.
func (c *Comp) Banks() int {
	return c.banks
}

// BankSize returns the size of one bank in bytes.
func (c *Comp) BankSize() uint64 {
	return c.bankSize
}

// ReadBank reads from a bank.
func (c *Comp) ReadBank(bank int, offset uint64, buf []byte) error {
	if bank < 0 || bank >= c.banks {
		return fmt.Errorf("cartridge: %s has no bank %d", c.ID(), bank)
	}

	if offset+uint64(len(buf)) > c.bankSize {
		return fmt.Errorf("%w: %d bytes at offset %#x of bank %d",
			memory.ErrBeyondCapacity, len(buf), offset, bank)
	}

	return c.Storage.Read(uint64(bank)*c.bankSize+offset, buf)
}
