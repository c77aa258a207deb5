// Package beeper provides a square wave tone generator.
//
// Registers:
//
//	base+0, base+1  tone frequency in Hz, little endian
//	base+2          volume, 0 to 255
package beeper

import (
	"encoding/binary"
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/audio"
	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// RegisterSize is the number of bytes the beeper occupies.
const RegisterSize = 3

// OutputName is the name of the audio output of a beeper.
const OutputName = "out"

// Comp generates one sample per period.
type Comp struct {
	*component.ComponentBase

	base       uint64
	sampleRate uint64
	regs       [RegisterSize]byte
	queue      *audio.Queue

	phase uint64
	high  bool
}

// Queue returns the queue the samples are pushed to.
func (c *Comp) Queue() *audio.Queue {
	return c.queue
}

// Tone returns the programmed frequency in Hz.
func (c *Comp) Tone() uint16 {
	return binary.LittleEndian.Uint16(c.regs[:])
}

// Tick produces one sample per period.
func (c *Comp) Tick(periods uint64) {
	tone := uint64(c.Tone())
	amplitude := float32(c.regs[2]) / 255

	for ; periods > 0; periods-- {
		if tone == 0 || amplitude == 0 {
			c.queue.Push(0)
			continue
		}

		c.phase += 2 * tone
		for c.phase >= c.sampleRate {
			c.phase -= c.sampleRate
			c.high = !c.high
		}

		if c.high {
			c.queue.Push(amplitude)
		} else {
			c.queue.Push(-amplitude)
		}
	}
}

// ReadMemory reads the registers.
func (c *Comp) ReadMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	off, err := c.offset(addr, len(buf))
	if err != nil {
		return err
	}

	copy(buf, c.regs[off:])

	return nil
}

// WriteMemory writes the registers.
func (c *Comp) WriteMemory(_ memory.AddressSpaceID, addr uint64, buf []byte) error {
	off, err := c.offset(addr, len(buf))
	if err != nil {
		return err
	}

	copy(c.regs[off:], buf)

	return nil
}

func (c *Comp) offset(addr uint64, n int) (uint64, error) {
	off := addr - c.base
	if off >= RegisterSize || uint64(n) > RegisterSize-off {
		return 0, fmt.Errorf("%w: %d bytes at %#x", memory.ErrBeyondCapacity, n, addr)
	}

	return off, nil
}

// Builder can build beepers.
type Builder struct {
	space      string
	base       uint64
	sampleRate int
	capacity   int
}

// MakeBuilder returns a Builder for a 48 kHz beeper at address 0 of the "cpu"
// space.
func MakeBuilder() Builder {
	return Builder{
		space:      "cpu",
		sampleRate: 48000,
		capacity:   4096,
	}
}

// WithSpace sets the address space the registers are mapped in.
func (b Builder) WithSpace(space string) Builder {
	b.space = space
	return b
}

// WithBase sets the address of the first register.
func (b Builder) WithBase(base uint64) Builder {
	b.base = base
	return b
}

// WithSampleRate sets the number of samples produced per second.
func (b Builder) WithSampleRate(rate int) Builder {
	b.sampleRate = rate
	return b
}

// WithQueueCapacity sets the number of samples the output queue holds.
func (b Builder) WithQueueCapacity(n int) Builder {
	b.capacity = n
	return b
}

// Build creates the beeper and declares it on a.
func (b Builder) Build(a *builder.Assembly, id naming.ID) (*Comp, error) {
	space, err := a.SpaceID(b.space)
	if err != nil {
		return nil, fmt.Errorf("beeper: %s: %w", id, err)
	}

	c := &Comp{
		ComponentBase: component.NewComponentBase(id),
		base:          b.base,
	}

	cb, err := a.Component(c)
	if err != nil {
		return nil, err
	}

	c.queue, err = cb.AudioOutput(OutputName, b.sampleRate, b.capacity)
	if err != nil {
		return nil, err
	}

	c.sampleRate = uint64(b.sampleRate)

	rng := memory.NewRange(b.base, b.base+RegisterSize-1)
	cb.MapReadable(space, rng).
		MapWritable(space, rng).
		Ticks(timing.Hz(c.sampleRate))

	return c, nil
}

// Factory returns a factory building beepers with the settings of b.
func (b Builder) Factory() builder.Factory {
	return func(a *builder.Assembly, id naming.ID) error {
		_, err := b.Build(a, id)
		return err
	}
}
