package machine

import (
	"sync/atomic"
)

// A Runner owns a machine on one goroutine and applies the messages it
// receives, one at a time, in order. Closing the inbox shuts the machine
// down.
type Runner struct {
	machine *Machine
	inbox   <-chan Message

	now   atomic.Uint64
	state atomic.Int32
	done  chan struct{}
}

// NewRunner creates a runner for m reading from inbox.
func NewRunner(m *Machine, inbox <-chan Message) *Runner {
	r := &Runner{
		machine: m,
		inbox:   inbox,
		done:    make(chan struct{}),
	}
	r.publish()

	return r
}

// Start runs the runner on a new goroutine.
func (r *Runner) Start() {
	go r.Run()
}

// Run applies messages until the inbox is closed. Messages that arrive after
// the machine shut down are rejected with ErrShutdown.
func (r *Runner) Run() {
	for msg := range r.inbox {
		err := r.machine.handle(msg)
		r.publish()
		deliver(msg, err)
	}

	if r.machine.State() != StateShutdown {
		_ = r.machine.handle(Shutdown{})
		r.publish()
	}
}

func (r *Runner) publish() {
	r.now.Store(r.machine.Now())

	state := r.machine.State()
	old := State(r.state.Swap(int32(state)))

	if state == StateShutdown && old != StateShutdown {
		close(r.done)
	}
}

// Now returns the master cycle count as of the last applied message. It is
// safe to call from any goroutine.
func (r *Runner) Now() uint64 {
	return r.now.Load()
}

// State returns the machine state as of the last applied message. It is safe
// to call from any goroutine.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Done is closed once the machine is shut down.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
