package machine

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/snapshot"
)

// ErrIncompleteSnapshot is returned when the records of a snapshot do not
// match the components of its header.
var ErrIncompleteSnapshot = errors.New("machine: incomplete snapshot")

// StateVersions returns the state version of every persistent component.
func (m *Machine) StateVersions() map[naming.ID]string {
	versions := make(map[naming.ID]string)
	if m.config == nil {
		return versions
	}

	for _, e := range m.config.Registry.WithCapability(component.CapPersistent) {
		versions[e.ID()] = e.Capabilities.Persistent.StateVersion()
	}

	return versions
}

func (m *Machine) save(msg SnapshotMachine) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	if msg.Destination == nil {
		return errors.New("machine: snapshot without destination")
	}

	s := m.config.Scheduler
	if err := s.SynchronizeAll(); err != nil {
		return err
	}

	state := s.State()
	header := snapshot.Header{
		Machine:    m.id,
		Cycle:      s.Now(),
		Components: make(map[naming.ID]string),
		Scheduler:  &state,
	}

	var records []snapshot.Record

	for _, e := range m.config.Registry.WithCapability(component.CapPersistent) {
		p := e.Capabilities.Persistent

		var buf bytes.Buffer
		if err := p.SaveState(&buf); err != nil {
			return fmt.Errorf("machine: saving %s: %w", e.ID(), err)
		}

		header.Components[e.ID()] = p.StateVersion()
		records = append(records, snapshot.Record{ID: e.ID(), Data: buf.Bytes()})
	}

	if err := snapshot.Write(msg.Destination, header, records); err != nil {
		return err
	}

	m.logger.Info("machine saved",
		"cycle", header.Cycle, "components", len(records))

	return nil
}

func (m *Machine) restore(msg RestoreMachine) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	if msg.Source == nil {
		return errors.New("machine: restore without source")
	}

	header, records, err := snapshot.Read(msg.Source)
	if err != nil {
		return err
	}

	if err := snapshot.CheckCompatibility(header, m.StateVersions()); err != nil {
		return err
	}

	if err := checkRecords(header, records); err != nil {
		return err
	}

	rollback, err := m.capture()
	if err != nil {
		return err
	}

	if err := m.load(header, records); err != nil {
		return errors.Join(err, m.load(rollback.header, rollback.records))
	}

	if header.Scheduler != nil {
		if err := m.config.Scheduler.Restore(*header.Scheduler); err != nil {
			return errors.Join(err, m.load(rollback.header, rollback.records))
		}
	}

	m.logger.Info("machine restored",
		"from", header.Machine, "cycle", header.Cycle, "components", len(records))

	return nil
}

// checkRecords requires exactly one record for every component of the header.
func checkRecords(header snapshot.Header, records []snapshot.Record) error {
	seen := make(map[naming.ID]bool, len(records))

	var errs []error

	for _, r := range records {
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate record for %s",
				ErrIncompleteSnapshot, r.ID))
		}

		seen[r.ID] = true
	}

	for _, id := range slices.Sorted(maps.Keys(header.Components)) {
		if !seen[id] {
			errs = append(errs, fmt.Errorf("%w: no record for %s",
				ErrIncompleteSnapshot, id))
		}
	}

	return errors.Join(errs...)
}

type savedStates struct {
	header  snapshot.Header
	records []snapshot.Record
}

// capture saves the current state of every persistent component so that a
// failed restore can put it back.
func (m *Machine) capture() (savedStates, error) {
	saved := savedStates{
		header: snapshot.Header{Components: make(map[naming.ID]string)},
	}

	for _, e := range m.config.Registry.WithCapability(component.CapPersistent) {
		p := e.Capabilities.Persistent

		var buf bytes.Buffer
		if err := p.SaveState(&buf); err != nil {
			return savedStates{}, fmt.Errorf("machine: saving %s: %w", e.ID(), err)
		}

		saved.header.Components[e.ID()] = p.StateVersion()
		saved.records = append(saved.records,
			snapshot.Record{ID: e.ID(), Data: buf.Bytes()})
	}

	return saved, nil
}

func (m *Machine) load(header snapshot.Header, records []snapshot.Record) error {
	for _, r := range records {
		e, err := m.config.Registry.MustGet(r.ID)
		if err != nil {
			return err
		}

		err = e.Capabilities.Persistent.LoadState(
			bytes.NewReader(r.Data), header.Components[r.ID])
		if err != nil {
			return fmt.Errorf("machine: loading %s: %w", r.ID, err)
		}
	}

	return nil
}
