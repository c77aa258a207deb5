package builder

import (
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// A Factory creates one component and declares it on the assembly.
type Factory func(a *Assembly, id naming.ID) error

// A Catalog maps component ids to the factories that construct them.
type Catalog struct {
	order     []naming.ID
	factories map[naming.ID]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		factories: make(map[naming.ID]Factory),
	}
}

// Register adds the factory of id.
func (c *Catalog) Register(id naming.ID, f Factory) error {
	if err := naming.ValidateID(id); err != nil {
		return err
	}

	if _, dup := c.factories[id]; dup {
		return fmt.Errorf("builder: factory for %q registered twice", id)
	}

	c.order = append(c.order, id)
	c.factories[id] = f

	return nil
}

// Lookup returns the factory of id.
func (c *Catalog) Lookup(id naming.ID) (Factory, error) {
	f, ok := c.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrUnknownKind, id)
	}

	return f, nil
}

// IDs returns the registered ids in registration order.
func (c *Catalog) IDs() []naming.ID {
	return append([]naming.ID(nil), c.order...)
}

// Construct runs the factory of id against a.
func (c *Catalog) Construct(a *Assembly, id naming.ID) error {
	if a.finalized {
		return ErrFinalized
	}

	f, err := c.Lookup(id)
	if err != nil {
		return err
	}

	if err := f(a, id); err != nil {
		return fmt.Errorf("builder: constructing %q: %w", id, err)
	}

	if !a.Has(id) {
		return fmt.Errorf("builder: factory for %q did not declare it", id)
	}

	return nil
}
