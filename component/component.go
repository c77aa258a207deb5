// Package component defines the contract that every hardware unit of a
// machine satisfies, and the optional capabilities a unit may expose on top
// of it.
package component

import (
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// A Component is a unit of hardware behavior. It is identified by a stable id
// and lives as long as the machine that owns it.
type Component interface {
	naming.Named

	// ID returns the stable path of the component inside the machine.
	ID() naming.ID
}

// ComponentBase provides the identity part of a Component.
type ComponentBase struct {
	naming.NamedBase
	id naming.ID
}

// NewComponentBase creates a ComponentBase. It panics if the id is malformed.
func NewComponentBase(id naming.ID) *ComponentBase {
	naming.MustBeValid(id)

	return &ComponentBase{
		NamedBase: naming.MakeNamedBase(string(id)),
		id:        id,
	}
}

// NewComponentBaseWithName creates a ComponentBase that reports a debug name
// different from its id.
func NewComponentBaseWithName(id naming.ID, name string) *ComponentBase {
	naming.MustBeValid(id)

	return &ComponentBase{
		NamedBase: naming.MakeNamedBase(name),
		id:        id,
	}
}

// ID returns the stable id of the component.
func (c *ComponentBase) ID() naming.ID {
	return c.id
}
