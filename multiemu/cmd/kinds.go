package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/config"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/beeper"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/cartridge"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/ram"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/rom"
	"github.com/kay-lambdadelta/multiemu-sub003/devices/timer"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// ErrUnknownKind is returned when a description names a kind that does not
// exist.
var ErrUnknownKind = errors.New("multiemu: unknown component kind")

// A Kind turns the parameters of a component description into a factory.
type Kind struct {
	Description string
	Params      string
	Factory     func(p *paramReader) builder.Factory
}

var kinds = map[string]Kind{
	"ram": {
		Description: "read/write memory",
		Params:      "space base size fill image",
		Factory: func(p *paramReader) builder.Factory {
			b := ram.MakeBuilder()
			p.str("space", func(v string) { b = b.WithSpace(v) })
			p.uint("base", func(v uint64) { b = b.WithBase(v) })
			p.uint("size", func(v uint64) { b = b.WithSize(v) })
			p.uint("fill", func(v uint64) { b = b.WithFill(byte(v)) })
			p.file("image", func(v []byte) { b = b.WithImage(v) })

			return b.Factory()
		},
	},
	"rom": {
		Description: "read-only memory loaded from an image",
		Params:      "space base image",
		Factory: func(p *paramReader) builder.Factory {
			b := rom.MakeBuilder()
			p.str("space", func(v string) { b = b.WithSpace(v) })
			p.uint("base", func(v uint64) { b = b.WithBase(v) })
			p.file("image", func(v []byte) { b = b.WithImage(v) })

			return b.Factory()
		},
	},
	"cartridge": {
		Description: "banked cartridge storage with a bank select mapper",
		Params:      "space base bank_size image",
		Factory: func(p *paramReader) builder.Factory {
			b := cartridge.MakeBuilder()
			p.str("space", func(v string) { b = b.WithSpace(v) })
			p.uint("base", func(v uint64) { b = b.WithBase(v) })
			p.uint("bank_size", func(v uint64) { b = b.WithBankSize(v) })
			p.file("image", func(v []byte) { b = b.WithImage(v) })

			return b.Factory()
		},
	},
	"timer": {
		Description: "countdown timer",
		Params:      "space base freq participation",
		Factory: func(p *paramReader) builder.Factory {
			b := timer.MakeBuilder()
			p.str("space", func(v string) { b = b.WithSpace(v) })
			p.uint("base", func(v uint64) { b = b.WithBase(v) })
			p.freq("freq", func(v timing.Freq) { b = b.WithFreq(v) })
			p.str("participation", func(v string) {
				part, err := timing.ParseParticipation(v)
				if err != nil {
					p.fail("participation", err)
					return
				}

				b = b.WithParticipation(part)
			})

			return b.Factory()
		},
	},
	"beeper": {
		Description: "square wave generator",
		Params:      "space base sample_rate queue",
		Factory: func(p *paramReader) builder.Factory {
			b := beeper.MakeBuilder()
			p.str("space", func(v string) { b = b.WithSpace(v) })
			p.uint("base", func(v uint64) { b = b.WithBase(v) })
			p.uint("sample_rate", func(v uint64) { b = b.WithSampleRate(int(v)) })
			p.uint("queue", func(v uint64) { b = b.WithQueueCapacity(int(v)) })

			return b.Factory()
		},
	},
}

// KindNames lists the known kinds in alphabetical order.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NewCatalog registers a factory for every component of d. Relative file
// parameters are resolved against dir.
func NewCatalog(d *config.MachineDescription, dir string) (*builder.Catalog, error) {
	catalog := builder.NewCatalog()

	var errs []error

	for _, c := range d.Components {
		kind, ok := kinds[c.Kind]
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q for %s", ErrUnknownKind, c.Kind, c.ID))
			continue
		}

		p := &paramReader{params: c.Params, dir: dir}
		factory := kind.Factory(p)

		if err := p.err(); err != nil {
			errs = append(errs, fmt.Errorf("multiemu: %s: %w", c.ID, err))
			continue
		}

		if err := catalog.Register(c.ID, factory); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return catalog, nil
}

// paramReader applies the parameters that are present and collects the
// faults of every malformed one.
type paramReader struct {
	params config.Params
	dir    string
	errs   []error
}

func (r *paramReader) has(key string) bool {
	_, ok := r.params[key]
	return ok
}

func (r *paramReader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("parameter %q: %w", key, err))
}

func (r *paramReader) uint(key string, apply func(uint64)) {
	if !r.has(key) {
		return
	}

	v, err := r.params.Uint(key, 0)
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}

	apply(v)
}

func (r *paramReader) str(key string, apply func(string)) {
	if !r.has(key) {
		return
	}

	v, err := r.params.String(key, "")
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}

	apply(v)
}

func (r *paramReader) freq(key string, apply func(timing.Freq)) {
	if !r.has(key) {
		return
	}

	v, err := r.params.Freq(key, timing.Freq{})
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}

	apply(v)
}

func (r *paramReader) file(key string, apply func([]byte)) {
	if !r.has(key) {
		return
	}

	v, err := r.params.File(key, r.dir)
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}

	apply(v)
}

func (r *paramReader) err() error {
	return errors.Join(r.errs...)
}
