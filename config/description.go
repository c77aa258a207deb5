package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// A MachineDescription lists what a machine is made of.
//
//	name: demo
//	master: 1MHz
//	spaces:
//	  - name: cpu
//	    bits: 16
//	components:
//	  - id: wram
//	    kind: ram
//	    params:
//	      base: 0x0000
//	      size: 0x0800
type MachineDescription struct {
	Name       string                 `yaml:"name"`
	Master     string                 `yaml:"master"`
	Spaces     []SpaceDescription     `yaml:"spaces"`
	Components []ComponentDescription `yaml:"components"`
}

// A SpaceDescription declares an address space.
type SpaceDescription struct {
	Name string `yaml:"name"`
	Bits uint8  `yaml:"bits"`
}

// A ComponentDescription declares a component built by the factory of its
// kind.
type ComponentDescription struct {
	ID     naming.ID `yaml:"id"`
	Kind   string    `yaml:"kind"`
	Params Params    `yaml:"params"`
}

// LoadDescription reads a machine description from a YAML file.
func LoadDescription(path string) (*MachineDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	d, err := ParseDescription(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return d, nil
}

// ParseDescription decodes and checks a machine description. Only the
// structure is checked; the parameters are checked by the factories.
func ParseDescription(data []byte) (*MachineDescription, error) {
	d := &MachineDescription{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := d.validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// MasterFreq parses the master clock.
func (d *MachineDescription) MasterFreq() (timing.Freq, error) {
	return timing.ParseFreq(d.Master)
}

func (d *MachineDescription) validate() error {
	var errs []error

	if _, err := d.MasterFreq(); err != nil {
		errs = append(errs, fmt.Errorf("config: master clock: %w", err))
	}

	if len(d.Spaces) == 0 {
		errs = append(errs, errors.New("config: no address space"))
	}

	spaces := make(map[string]bool)
	for i, s := range d.Spaces {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("config: address space %d has no name", i))
		case spaces[s.Name]:
			errs = append(errs, fmt.Errorf("config: address space %q declared twice", s.Name))
		case s.Bits == 0 || s.Bits > 64:
			errs = append(errs, fmt.Errorf("config: address space %q is %d bits wide",
				s.Name, s.Bits))
		}

		spaces[s.Name] = true
	}

	ids := make(map[naming.ID]bool)
	for i, c := range d.Components {
		if err := naming.ValidateID(c.ID); err != nil {
			errs = append(errs, fmt.Errorf("config: component %d: %w", i, err))
		} else if ids[c.ID] {
			errs = append(errs, fmt.Errorf("config: component %q declared twice", c.ID))
		}

		if c.Kind == "" {
			errs = append(errs, fmt.Errorf("config: component %q has no kind", c.ID))
		}

		ids[c.ID] = true
	}

	return errors.Join(errs...)
}

// Params are the free form parameters of a component.
type Params map[string]any

// Uint returns an unsigned parameter, or def when it is absent. Strings are
// parsed with their base prefix, so "0x8000" is accepted.
func (p Params) Uint(key string, def uint64) (uint64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := v.(type) {
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case uint64:
		return v, nil
	case string:
		n, err := strconv.ParseUint(v, 0, 64)
		if err == nil {
			return n, nil
		}
	}

	return 0, fmt.Errorf("config: parameter %q: %v is not an unsigned integer", key, v)
}

// String returns a string parameter, or def when it is absent.
func (p Params) String(key string, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config: parameter %q: %v is not a string", key, v)
	}

	return s, nil
}

// Freq returns a frequency parameter, or def when it is absent.
func (p Params) Freq(key string, def timing.Freq) (timing.Freq, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}

	var s string
	switch v := v.(type) {
	case int:
		s = strconv.Itoa(v)
	case string:
		s = v
	default:
		return timing.Freq{}, fmt.Errorf("config: parameter %q: %v is not a frequency", key, v)
	}

	f, err := timing.ParseFreq(s)
	if err != nil {
		return timing.Freq{}, fmt.Errorf("config: parameter %q: %w", key, err)
	}

	return f, nil
}

// File returns the content of the file named by a parameter. Relative paths
// are resolved against dir.
func (p Params) File(key, dir string) ([]byte, error) {
	name, err := p.String(key, "")
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, nil
	}

	if !filepath.IsAbs(name) {
		name = filepath.Join(dir, name)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("config: parameter %q: %w", key, err)
	}

	return data, nil
}
