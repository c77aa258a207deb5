// Package input provides the virtual input devices a machine exposes to the
// host, e.g. gamepads fed by a keyboard or a real controller.
package input

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// Errors reported by input devices.
var (
	ErrUnknownButton   = errors.New("input: unknown button")
	ErrTooManyButtons  = errors.New("input: too many buttons")
	ErrDuplicateButton = errors.New("input: duplicate button")
)

// MaxButtons is the number of buttons a Gamepad can have.
const MaxButtons = 64

// A Gamepad is a set of named buttons. The host presses and releases them
// from any goroutine; the owning component samples them on the machine
// thread.
type Gamepad struct {
	owner   naming.ID
	name    string
	buttons []string
	index   map[string]uint
	state   atomic.Uint64
}

// NewGamepad creates a gamepad with the given buttons, in bit order.
func NewGamepad(owner naming.ID, name string, buttons ...string) (*Gamepad, error) {
	if len(buttons) > MaxButtons {
		return nil, fmt.Errorf("%w: %d buttons on %s", ErrTooManyButtons,
			len(buttons), name)
	}

	g := &Gamepad{
		owner:   owner,
		name:    name,
		buttons: append([]string(nil), buttons...),
		index:   make(map[string]uint, len(buttons)),
	}

	for i, b := range buttons {
		if _, dup := g.index[b]; dup {
			return nil, fmt.Errorf("%w %q on %s", ErrDuplicateButton, b, name)
		}

		g.index[b] = uint(i)
	}

	return g, nil
}

// Owner returns the component that declared the gamepad.
func (g *Gamepad) Owner() naming.ID {
	return g.owner
}

// Name returns the name of the gamepad.
func (g *Gamepad) Name() string {
	return g.name
}

// Buttons returns the button names in bit order.
func (g *Gamepad) Buttons() []string {
	return append([]string(nil), g.buttons...)
}

func (g *Gamepad) bit(button string) (uint64, error) {
	i, ok := g.index[button]
	if !ok {
		return 0, fmt.Errorf("%w %q on %s", ErrUnknownButton, button, g.name)
	}

	return 1 << i, nil
}

// Press marks a button as held.
func (g *Gamepad) Press(button string) error {
	bit, err := g.bit(button)
	if err != nil {
		return err
	}

	g.state.Or(bit)

	return nil
}

// Release marks a button as not held.
func (g *Gamepad) Release(button string) error {
	bit, err := g.bit(button)
	if err != nil {
		return err
	}

	g.state.And(^bit)

	return nil
}

// Pressed tells if a button is held.
func (g *Gamepad) Pressed(button string) (bool, error) {
	bit, err := g.bit(button)
	if err != nil {
		return false, err
	}

	return g.state.Load()&bit != 0, nil
}

// State returns every button as a bit mask, bit i being the i-th button.
func (g *Gamepad) State() uint64 {
	return g.state.Load()
}

// SetState replaces the whole button mask.
func (g *Gamepad) SetState(mask uint64) {
	g.state.Store(mask)
}
