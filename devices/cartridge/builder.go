package cartridge

import (
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Builder can build cartridges and their mappers.
type Builder struct {
	space    string
	base     uint64
	bankSize uint64
	image    []byte
}

// MakeBuilder returns a Builder with 16 KiB banks mapped at 0x8000 of the
// "cpu" space.
func MakeBuilder() Builder {
	return Builder{
		space:    "cpu",
		base:     0x8000,
		bankSize: 16 << 10,
	}
}

// WithSpace sets the address space the mapper window is in.
func (b Builder) WithSpace(space string) Builder {
	b.space = space
	return b
}

// WithBase sets the first address of the mapper window.
func (b Builder) WithBase(base uint64) Builder {
	b.base = base
	return b
}

// WithBankSize sets the size of a bank, which is also the size of the
// window.
func (b Builder) WithBankSize(size uint64) Builder {
	b.bankSize = size
	return b
}

// WithImage sets the content of the cartridge.
func (b Builder) WithImage(image []byte) Builder {
	b.image = image
	return b
}

// Build creates the cartridge as id and its mapper as id.mapper.
func (b Builder) Build(a *builder.Assembly, id naming.ID) (*Comp, *Mapper, error) {
	space, err := a.SpaceID(b.space)
	if err != nil {
		return nil, nil, fmt.Errorf("cartridge: %s: %w", id, err)
	}

	cart, err := newComp(id, b.image, b.bankSize)
	if err != nil {
		return nil, nil, err
	}

	cb, err := a.Component(cart)
	if err != nil {
		return nil, nil, err
	}

	cb.Participation(timing.None)

	mapper := newMapper(id.Child("mapper"), cart, b.base)

	mb, err := a.Component(mapper)
	if err != nil {
		return nil, nil, err
	}

	mapper.logger = mb.Logger()
	mb.Participation(timing.None).
		MapReadable(space, mapper.window).
		MapWritable(space, mapper.window)

	return cart, mapper, nil
}

// Factory returns a factory building cartridges with the settings of b.
func (b Builder) Factory() builder.Factory {
	return func(a *builder.Assembly, id naming.ID) error {
		_, _, err := b.Build(a, id)
		return err
	}
}
