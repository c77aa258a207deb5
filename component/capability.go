package component

import (
	"fmt"
	"io"
	"strings"

	"github.com/kay-lambdadelta/multiemu-sub003/memory"
)

// Readable components answer read accesses on the ranges they claim.
type Readable interface {
	ReadMemory(space memory.AddressSpaceID, addr uint64, buf []byte) error
}

// Writable components accept write accesses on the ranges they claim.
type Writable interface {
	WriteMemory(space memory.AddressSpaceID, addr uint64, buf []byte) error
}

// A Ticker is driven by a periodic task. Tick is called with the number of
// whole periods that elapsed since the previous call.
type Ticker interface {
	Tick(periods uint64)
}

// A Trigger is run on request, outside the regular scheduling, with the
// number of periods the requester wants it to cover.
type Trigger interface {
	Trigger(periods uint64)
}

// Persistent components contribute their state to machine snapshots.
type Persistent interface {
	// StateVersion returns the semantic version of the state format.
	StateVersion() string

	// SaveState writes the state of the component.
	SaveState(w io.Writer) error

	// LoadState restores a state that was written with the given version.
	LoadState(r io.Reader, version string) error
}

// Capability names one optional behavior of a component.
type Capability uint8

// The capabilities a component may expose.
const (
	CapReadable Capability = 1 << iota
	CapWritable
	CapTicker
	CapTrigger
	CapPersistent
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapReadable, "readable"},
	{CapWritable, "writable"},
	{CapTicker, "ticker"},
	{CapTrigger, "trigger"},
	{CapPersistent, "persistent"},
}

func (c Capability) String() string {
	for _, n := range capabilityNames {
		if n.c == c {
			return n.name
		}
	}

	return fmt.Sprintf("Capability(%d)", uint8(c))
}

// Capabilities holds the capability handles of one component. It is filled
// once by Discover and never changes afterwards, so dispatching through a
// handle is a plain interface call.
type Capabilities struct {
	Readable   Readable
	Writable   Writable
	Ticker     Ticker
	Trigger    Trigger
	Persistent Persistent
}

// Discover inspects c and records every capability it implements.
func Discover(c Component) Capabilities {
	var caps Capabilities

	caps.Readable, _ = c.(Readable)
	caps.Writable, _ = c.(Writable)
	caps.Ticker, _ = c.(Ticker)
	caps.Trigger, _ = c.(Trigger)
	caps.Persistent, _ = c.(Persistent)

	return caps
}

// Mask returns the capabilities as a bit set.
func (c Capabilities) Mask() Capability {
	var m Capability

	if c.Readable != nil {
		m |= CapReadable
	}

	if c.Writable != nil {
		m |= CapWritable
	}

	if c.Ticker != nil {
		m |= CapTicker
	}

	if c.Trigger != nil {
		m |= CapTrigger
	}

	if c.Persistent != nil {
		m |= CapPersistent
	}

	return m
}

// Has tells if the capability is present.
func (c Capabilities) Has(want Capability) bool {
	return want != 0 && c.Mask()&want == want
}

// Set lists the present capabilities in a fixed order.
func (c Capabilities) Set() []Capability {
	mask := c.Mask()
	set := make([]Capability, 0, len(capabilityNames))

	for _, n := range capabilityNames {
		if mask&n.c != 0 {
			set = append(set, n.c)
		}
	}

	return set
}

func (c Capabilities) String() string {
	set := c.Set()
	if len(set) == 0 {
		return "none"
	}

	names := make([]string, 0, len(set))
	for _, s := range set {
		names = append(names, s.String())
	}

	return strings.Join(names, "|")
}
