// Package timer provides a programmable countdown timer.
//
// The timer occupies three bytes of its address space:
//
//	base+0, base+1  counter (read) / reload value (write), little endian
//	base+2          control: bit 0 enables counting, bit 7 is set when the
//	                counter expired; writing bit 7 clears it
//
// A reload value of 0 counts 65536 periods.
package timer

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
)

// StateVersion is the version of the saved state format.
const StateVersion = "1.1.0"

// Control register bits.
const (
	ControlEnable  byte = 1 << 0
	ControlExpired byte = 1 << 7
)

// RegisterSize is the number of bytes the timer occupies.
const RegisterSize = 3

type state struct {
	Counter     uint32
	Reload      uint16
	Control     uint8
	Expirations uint64
}

// Comp is a countdown timer.
type Comp struct {
	*component.ComponentBase

	base   uint64
	state  state
	logger logr.Logger
}

func (c *Comp) period() uint32 {
	if c.state.Reload == 0 {
		return 1 << 16
	}

	return uint32(c.state.Reload)
}

// Counter returns the current count.
func (c *Comp) Counter() uint32 {
	return c.state.Counter
}

// Expirations returns how many times the counter reached zero.
func (c *Comp) Expirations() uint64 {
	return c.state.Expirations
}

// Enabled tells if the timer is counting.
func (c *Comp) Enabled() bool {
	return c.state.Control&ControlEnable != 0
}

// Tick counts down periods.
func (c *Comp) Tick(periods uint64) {
	if !c.Enabled() || periods == 0 {
		return
	}

	left := uint64(c.state.Counter)
	if periods < left {
		c.state.Counter -= uint32(periods)
		return
	}

	periods -= left
	period := uint64(c.period())
	expired := 1 + periods/period

	c.state.Expirations += expired
	c.state.Counter = uint32(period - periods%period)
	c.state.Control |= ControlExpired

	c.logger.V(2).Info("timer expired", "times", expired)
}

// Trigger restarts the countdown from the reload value.
func (c *Comp) Trigger(uint64) {
	c.state.Counter = c.period()
}

// ReadMemory reads the registers.
func (c *Comp) ReadMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	var regs [RegisterSize]byte
	binary.LittleEndian.PutUint16(regs[:], uint16(c.state.Counter))
	regs[2] = c.state.Control

	return c.access(addr, len(buf), func(off uint64, i int) {
		buf[i] = regs[off]
	})
}

// WriteMemory writes the registers.
func (c *Comp) WriteMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	return c.access(addr, len(buf), func(off uint64, i int) {
		switch off {
		case 0:
			c.state.Reload = c.state.Reload&0xff00 | uint16(buf[i])
		case 1:
			c.state.Reload = c.state.Reload&0x00ff | uint16(buf[i])<<8
		case 2:
			c.writeControl(buf[i])
		}
	})
}

func (c *Comp) writeControl(v byte) {
	wasEnabled := c.Enabled()

	c.state.Control = c.state.Control&ControlExpired | v&ControlEnable
	if v&ControlExpired != 0 {
		c.state.Control &^= ControlExpired
	}

	if !wasEnabled && c.Enabled() {
		c.state.Counter = c.period()
	}
}

func (c *Comp) access(addr uint64, n int, fn func(off uint64, i int)) error {
	off := addr - c.base
	if off >= RegisterSize || uint64(n) > RegisterSize-off {
		return fmt.Errorf("%w: %d bytes at %#x", memory.ErrBeyondCapacity, n, addr)
	}

	for i := 0; i < n; i++ {
		fn(off+uint64(i), i)
	}

	return nil
}

// StateVersion returns the version of the saved state format.
func (c *Comp) StateVersion() string {
	return StateVersion
}

// SaveState writes the registers and counters.
func (c *Comp) SaveState(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, c.state)
}

// LoadState restores the registers and counters. States of version 1.0.x did
// not record the expirations.
func (c *Comp) LoadState(r io.Reader, version string) error {
	var s state

	if version == "1.0.0" {
		var old struct {
			Counter uint32
			Reload  uint16
			Control uint8
		}

		if err := binary.Read(r, binary.BigEndian, &old); err != nil {
			return fmt.Errorf("timer: state of %s: %w", c.ID(), err)
		}

		s = state{Counter: old.Counter, Reload: old.Reload, Control: old.Control}
	} else if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("timer: state of %s: %w", c.ID(), err)
	}

	c.state = s

	return nil
}
