package ram

import (
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// Builder can build RAM components.
type Builder struct {
	space string
	base  uint64
	size  uint64
	fill  byte
	image []byte
}

// MakeBuilder returns a Builder with 2 KiB of RAM at address 0 of the "cpu"
// space.
func MakeBuilder() Builder {
	return Builder{
		space: "cpu",
		size:  2 << 10,
	}
}

// WithSpace sets the address space the RAM is mapped in.
func (b Builder) WithSpace(space string) Builder {
	b.space = space
	return b
}

// WithBase sets the first mapped address.
func (b Builder) WithBase(base uint64) Builder {
	b.base = base
	return b
}

// WithSize sets the capacity in bytes.
func (b Builder) WithSize(size uint64) Builder {
	b.size = size
	return b
}

// WithFill sets the power-on value of every byte.
func (b Builder) WithFill(fill byte) Builder {
	b.fill = fill
	return b
}

// WithImage sets the initial content, starting at the base address.
func (b Builder) WithImage(image []byte) Builder {
	b.image = image
	return b
}

// Build creates the RAM and declares it on a.
func (b Builder) Build(a *builder.Assembly, id naming.ID) (*Comp, error) {
	if b.size == 0 {
		return nil, fmt.Errorf("ram: %s has no capacity", id)
	}

	space, err := a.SpaceID(b.space)
	if err != nil {
		return nil, fmt.Errorf("ram: %s: %w", id, err)
	}

	storage := memory.NewStorage(b.size).WithFill(b.fill)
	if err := storage.Load(b.image); err != nil {
		return nil, fmt.Errorf("ram: %s: %w", id, err)
	}

	c := newComp(id, b.base, storage)

	cb, err := a.Component(c)
	if err != nil {
		return nil, err
	}

	rng := memory.NewRange(b.base, b.base+b.size-1)
	cb.MapReadable(space, rng).MapWritable(space, rng)

	return c, nil
}

// Factory returns a factory building RAM with the settings of b.
func (b Builder) Factory() builder.Factory {
	return func(a *builder.Assembly, id naming.ID) error {
		_, err := b.Build(a, id)
		return err
	}
}
