package component

import (
	"errors"
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// ErrDuplicateComponent is returned when two components share an id.
var ErrDuplicateComponent = errors.New("component: duplicate component id")

// ErrUnknownComponent is returned when an id is not registered.
var ErrUnknownComponent = errors.New("component: unknown component")

// An Entry is everything the runtime knows about one registered component.
type Entry struct {
	Component     Component
	Capabilities  Capabilities
	Participation timing.Participation
}

// ID returns the id of the component of the entry.
func (e Entry) ID() naming.ID {
	return e.Component.ID()
}

// A Registry keeps the components of a machine in registration order.
type Registry struct {
	entries []Entry
	index   map[naming.ID]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[naming.ID]int),
	}
}

// Add registers a component. Its capabilities are discovered here, once.
func (r *Registry) Add(c Component, p timing.Participation) (Entry, error) {
	id := c.ID()

	if err := naming.ValidateID(id); err != nil {
		return Entry{}, err
	}

	if _, dup := r.index[id]; dup {
		return Entry{}, fmt.Errorf("%w %q", ErrDuplicateComponent, id)
	}

	e := Entry{
		Component:     c,
		Capabilities:  Discover(c),
		Participation: p,
	}

	r.index[id] = len(r.entries)
	r.entries = append(r.entries, e)

	return e, nil
}

// Get returns the entry of a component.
func (r *Registry) Get(id naming.ID) (Entry, bool) {
	i, ok := r.index[id]
	if !ok {
		return Entry{}, false
	}

	return r.entries[i], true
}

// MustGet returns the entry of a component, or ErrUnknownComponent.
func (r *Registry) MustGet(id naming.ID) (Entry, error) {
	e, ok := r.Get(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w %q", ErrUnknownComponent, id)
	}

	return e, nil
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns all the entries in registration order.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)

	return entries
}

// WithCapability returns the entries that expose want, in registration order.
func (r *Registry) WithCapability(want Capability) []Entry {
	var entries []Entry

	for _, e := range r.entries {
		if e.Capabilities.Has(want) {
			entries = append(entries, e)
		}
	}

	return entries
}
