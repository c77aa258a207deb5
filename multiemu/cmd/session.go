package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/config"
	"github.com/kay-lambdadelta/multiemu-sub003/machine"
)

// A session owns a machine running on its own goroutine and talks to it
// through messages only.
type session struct {
	machine *machine.Machine
	inbox   chan machine.Message
	runner  *machine.Runner
	logger  logr.Logger

	closeOnce sync.Once
}

// assemble builds the machine of a description and starts it. The caller
// must close the session.
func assemble(
	ctx context.Context,
	d *config.MachineDescription,
	path string,
	logger logr.Logger,
) (*session, error) {
	master, err := d.MasterFreq()
	if err != nil {
		return nil, err
	}

	catalog, err := NewCatalog(d, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	m := machine.New(catalog, master, machine.WithLogger(logger))

	for _, s := range d.Spaces {
		if _, err := m.Assembly().AddressSpace(s.Name, s.Bits); err != nil {
			return nil, err
		}
	}

	s := &session{
		machine: m,
		inbox:   make(chan machine.Message, 16),
		logger:  logger,
	}
	s.runner = machine.NewRunner(m, s.inbox)
	s.runner.Start()

	for _, c := range d.Components {
		err := s.post(ctx, func(reply chan<- error) machine.Message {
			return machine.ConstructComponent{ID: c.ID, Reply: reply}
		})
		if err != nil {
			s.close()
			return nil, err
		}
	}

	err = s.post(ctx, func(reply chan<- error) machine.Message {
		return machine.FinalizeExternalMachine{Reply: reply}
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("multiemu: assembling %s: %w", d.Name, err)
	}

	return s, nil
}

// post sends a message and waits for its outcome.
func (s *session) post(
	ctx context.Context,
	build func(reply chan<- error) machine.Message,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reply := make(chan error, 1)

	select {
	case s.inbox <- build(reply):
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close shuts the machine down and waits for the runner to stop.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.inbox)
		<-s.runner.Done()
	})
}
