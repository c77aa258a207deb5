package cartridge

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// MapperStateVersion is the version of the saved state format of a Mapper.
const MapperStateVersion = "1.0.0"

// A Mapper exposes one bank of a cartridge through a window of the bus.
// Writing anywhere in the window selects the bank, modulo the number of
// banks.
type Mapper struct {
	*component.ComponentBase

	cart   *Comp
	window memory.Range
	bank   int
	logger logr.Logger
}

func newMapper(id naming.ID, cart *Comp, base uint64) *Mapper {
	return &Mapper{
		ComponentBase: component.NewComponentBase(id),
		cart:          cart,
		window:        memory.NewRange(base, base+cart.bankSize-1),
		logger:        logr.Discard(),
	}
}

// Window returns the range the mapper answers in.
func (m *Mapper) Window() memory.Range {
	return m.window
}

// Bank returns the selected bank.
func (m *Mapper) Bank() int {
	return m.bank
}

// ReadMemory reads from the selected bank.
func (m *Mapper) ReadMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	return m.cart.ReadBank(m.bank, addr-m.window.Start, buf)
}

// WriteMemory selects a bank with the last byte written.
func (m *Mapper) WriteMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	m.bank = int(buf[len(buf)-1]) % m.cart.banks
	m.logger.V(2).Info("bank selected", "bank", m.bank, "addr", addr)

	return nil
}

// StateVersion returns the version of the saved state format.
func (m *Mapper) StateVersion() string {
	return MapperStateVersion
}

// SaveState writes the selected bank.
func (m *Mapper) SaveState(w io.Writer) error {
	_, err := w.Write([]byte{byte(m.bank)})
	return err
}

// LoadState restores the selected bank.
func (m *Mapper) LoadState(r io.Reader, _ string) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return fmt.Errorf("cartridge: mapper state of %s: %w", m.ID(), err)
	}

	if int(b[0]) >= m.cart.banks {
		return fmt.Errorf("cartridge: mapper state of %s selects bank %d of %d",
			m.ID(), b[0], m.cart.banks)
	}

	m.bank = int(b[0])

	return nil
}
