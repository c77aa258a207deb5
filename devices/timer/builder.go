package timer

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Builder can build timers.
type Builder struct {
	space         string
	base          uint64
	freq          timing.Freq
	participation timing.Participation
}

// MakeBuilder returns a Builder for a 1 MHz on-demand timer at address 0 of
// the "cpu" space.
func MakeBuilder() Builder {
	return Builder{
		space:         "cpu",
		freq:          timing.MHz(1),
		participation: timing.OnDemand,
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

// WithFreq sets the counting frequency.
func (b Builder) WithFreq(freq timing.Freq) Builder {
	b.freq = freq
	return b
}

// WithParticipation sets how the timer is caught up with simulated time.
func (b Builder) WithParticipation(p timing.Participation) Builder {
	b.participation = p
	return b
}

// Build creates the timer and declares it on a.
func (b Builder) Build(a *builder.Assembly, id naming.ID) (*Comp, error) {
	space, err := a.SpaceID(b.space)
	if err != nil {
		return nil, fmt.Errorf("timer: %s: %w", id, err)
	}

	c := &Comp{
		ComponentBase: component.NewComponentBase(id),
		base:          b.base,
		logger:        logr.Discard(),
	}
	c.state.Counter = c.period()

	cb, err := a.Component(c)
	if err != nil {
		return nil, err
	}

	c.logger = cb.Logger()

	rng := memory.NewRange(b.base, b.base+RegisterSize-1)
	cb.Participation(b.participation).
		MapReadable(space, rng).
		MapWritable(space, rng).
		Ticks(b.freq).
		Triggered()

	return c, nil
}

// Factory returns a factory building timers with the settings of b.
func (b Builder) Factory() builder.Factory {
	return func(a *builder.Assembly, id naming.ID) error {
		_, err := b.Build(a, id)
		return err
	}
}
