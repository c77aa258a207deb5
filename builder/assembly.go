// Package builder collects the declarations of every component of a machine
// and freezes them into the immutable tables the machine runs on.
package builder

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/audio"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/input"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// An Option configures an Assembly.
type Option func(a *Assembly)

// WithLogger sets the logger handed to components.
func WithLogger(l logr.Logger) Option {
	return func(a *Assembly) {
		a.logger = l
	}
}

// An Assembly is the machine-level accumulator. Components are declared
// against it one by one; Finalize validates everything together.
type Assembly struct {
	master timing.Freq
	logger logr.Logger

	spaces     []memory.Space
	components []*ComponentBuilder
	index      map[naming.ID]*ComponentBuilder
	faults     []error
	finalized  bool
}

// NewAssembly starts the assembly of a machine driven by the given master
// clock.
func NewAssembly(master timing.Freq, opts ...Option) *Assembly {
	a := &Assembly{
		master: master,
		logger: logr.Discard(),
		index:  make(map[naming.ID]*ComponentBuilder),
	}

	for _, o := range opts {
		o(a)
	}

	if master.IsZero() {
		a.faults = append(a.faults,
			fmt.Errorf("%w: master clock", timing.ErrZeroFrequency))
	}

	return a
}

// Master returns the master clock of the machine.
func (a *Assembly) Master() timing.Freq {
	return a.master
}

// Logger returns the machine logger.
func (a *Assembly) Logger() logr.Logger {
	return a.logger
}

// IsFinalized tells if Finalize was called.
func (a *Assembly) IsFinalized() bool {
	return a.finalized
}

// AddressSpace declares a bus with the given address width. Spaces are
// numbered from 0 in declaration order.
func (a *Assembly) AddressSpace(name string, bits uint8) (memory.AddressSpaceID, error) {
	if a.finalized {
		return 0, ErrFinalized
	}

	id := memory.AddressSpaceID(len(a.spaces))

	for _, s := range a.spaces {
		if s.Name == name {
			err := fmt.Errorf("builder: address space %q declared twice", name)
			a.faults = append(a.faults, err)

			return 0, err
		}
	}

	a.spaces = append(a.spaces, memory.Space{ID: id, Name: name, Bits: bits})

	return id, nil
}

// SpaceByName looks up a declared address space.
func (a *Assembly) SpaceByName(name string) (memory.AddressSpaceID, bool) {
	for _, s := range a.spaces {
		if s.Name == name {
			return s.ID, true
		}
	}

	return 0, false
}

// SpaceID looks up a declared address space and fails with
// memory.ErrUnknownSpace when there is none.
func (a *Assembly) SpaceID(name string) (memory.AddressSpaceID, error) {
	id, ok := a.SpaceByName(name)
	if !ok {
		return 0, fmt.Errorf("%w %q", memory.ErrUnknownSpace, name)
	}

	return id, nil
}

// Has tells if a component with the id was declared.
func (a *Assembly) Has(id naming.ID) bool {
	_, ok := a.index[id]
	return ok
}

// Component starts the declarations of c. Its capabilities are discovered
// here, once.
func (a *Assembly) Component(c component.Component) (*ComponentBuilder, error) {
	if a.finalized {
		return nil, ErrFinalized
	}

	id := c.ID()
	if err := naming.ValidateID(id); err != nil {
		a.faults = append(a.faults, err)
		return nil, err
	}

	if _, dup := a.index[id]; dup {
		err := fmt.Errorf("%w %q", component.ErrDuplicateComponent, id)
		a.faults = append(a.faults, err)

		return nil, err
	}

	cb := &ComponentBuilder{
		assembly:      a,
		component:     c,
		caps:          component.Discover(c),
		participation: timing.SchedulerDriven,
		logger:        a.logger.WithName(string(id)),
	}

	a.components = append(a.components, cb)
	a.index[id] = cb

	a.logger.V(1).Info("component declared",
		"id", id, "capabilities", cb.caps.String())

	return cb, nil
}

// Config is the immutable result of a successful assembly.
type Config struct {
	Master       timing.Freq
	Spaces       []memory.Space
	Table        *memory.Table
	Scheduler    *timing.Scheduler
	Registry     *component.Registry
	AudioOutputs []audio.Output
	Gamepads     []*input.Gamepad
}

// Finalize validates every declaration and freezes them. Every fault is
// reported in a single ConstructionError. The assembly cannot be used
// afterwards, whatever the outcome.
func (a *Assembly) Finalize() (*Config, error) {
	if a.finalized {
		return nil, ErrFinalized
	}

	a.finalized = true

	faults := append([]error(nil), a.faults...)
	for _, cb := range a.components {
		faults = append(faults, cb.faults...)
	}

	table, err := a.buildTable()
	if err != nil {
		faults = append(faults, err)
	}

	registry, err := a.buildRegistry()
	if err != nil {
		faults = append(faults, err)
	}

	scheduler, errs := a.buildScheduler()
	faults = append(faults, errs...)

	outputs, pads, errs := a.collectEndpoints()
	faults = append(faults, errs...)

	if len(faults) > 0 {
		a.logger.Error(nil, "machine assembly failed", "faults", len(faults))
		return nil, &ConstructionError{Faults: faults}
	}

	scheduler.Seal()

	cfg := &Config{
		Master:       a.master,
		Spaces:       table.Spaces(),
		Table:        table.WithSynchronizer(scheduler),
		Scheduler:    scheduler,
		Registry:     registry,
		AudioOutputs: outputs,
		Gamepads:     pads,
	}

	a.logger.Info("machine assembled",
		"components", registry.Len(),
		"spaces", len(cfg.Spaces),
		"tasks", len(scheduler.Tasks()),
		"audio outputs", len(outputs),
		"gamepads", len(pads))

	return cfg, nil
}

func (a *Assembly) buildTable() (*memory.Table, error) {
	tb := memory.NewTableBuilder()

	for _, s := range a.spaces {
		tb.AddSpace(s)
	}

	for _, cb := range a.components {
		for _, c := range cb.claims {
			tb.AddClaim(c)
		}
	}

	return tb.Build()
}

func (a *Assembly) buildRegistry() (*component.Registry, error) {
	registry := component.NewRegistry()

	var errs []error
	for _, cb := range a.components {
		if _, err := registry.Add(cb.component, cb.participation); err != nil {
			errs = append(errs, err)
		}
	}

	return registry, errors.Join(errs...)
}

func (a *Assembly) buildScheduler() (*timing.Scheduler, []error) {
	freqs, err := timing.NewFrequencyRegistry(a.master)
	if err != nil {
		// The zero master clock is already a staged fault.
		return nil, nil
	}

	scheduler := timing.NewScheduler(freqs)

	var errs []error
	for _, cb := range a.components {
		for _, t := range cb.tasks {
			p := cb.participation
			if t.requestOnly {
				p = timing.None
			}

			err := scheduler.AddTask(cb.component.ID(), t.name, t.freq, t.fn, p)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	return scheduler, errs
}

func (a *Assembly) collectEndpoints() ([]audio.Output, []*input.Gamepad, []error) {
	var (
		outputs []audio.Output
		pads    []*input.Gamepad
		errs    []error
	)

	for _, cb := range a.components {
		names := make(map[string]bool)

		for _, o := range cb.outputs {
			if names[o.Name] {
				errs = append(errs, fmt.Errorf(
					"builder: audio output %q of %s declared twice",
					o.Name, o.Owner))

				continue
			}

			names[o.Name] = true
			outputs = append(outputs, o)
		}

		names = make(map[string]bool)

		for _, g := range cb.gamepads {
			if names[g.Name()] {
				errs = append(errs, fmt.Errorf(
					"builder: gamepad %q of %s declared twice",
					g.Name(), g.Owner()))

				continue
			}

			names[g.Name()] = true
			pads = append(pads, g)
		}
	}

	return outputs, pads, errs
}
