package machine

import (
	"io"

	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// A Message is a command applied by the machine thread. Messages are the only
// way to mutate a machine from another goroutine.
//
// Every message may carry a Reply channel that receives the outcome of the
// message. The channel must be buffered or read, since the machine thread
// blocks until the outcome is delivered.
type Message interface {
	replyTo() chan<- error
}

// ConstructComponent instantiates a component through its catalog factory.
type ConstructComponent struct {
	ID    naming.ID
	Reply chan<- error
}

// FinalizeExternalMachine freezes the declarations of every constructed
// component and starts the machine.
type FinalizeExternalMachine struct {
	Reply chan<- error
}

// SetMemoryTranslationTable installs a new frozen memory table.
type SetMemoryTranslationTable struct {
	Table *memory.Table
	Reply chan<- error
}

// RunComponent runs periods of one task outside of the regular advance. An
// empty Task runs the trigger task of the component.
type RunComponent struct {
	ID      naming.ID
	Task    string
	Periods uint64
	Reply   chan<- error
}

// AdvanceMachine moves simulated time forward.
type AdvanceMachine struct {
	Cycles uint64
	Reply  chan<- error
}

// SnapshotMachine writes the persisted state of every component.
type SnapshotMachine struct {
	Destination io.Writer
	Reply       chan<- error
}

// RestoreMachine loads a snapshot written by SnapshotMachine.
type RestoreMachine struct {
	Source io.Reader
	Reply  chan<- error
}

// InspectComponent renders the fields of a component as JSON. Field selects
// a nested field with a dot separated path; an empty Field renders the whole
// component.
type InspectComponent struct {
	ID          naming.ID
	Field       string
	Depth       int
	Destination io.Writer
	Reply       chan<- error
}

// Shutdown stops the machine. Every later message is rejected.
type Shutdown struct {
	Reply chan<- error
}

func (m ConstructComponent) replyTo() chan<- error        { return m.Reply }
func (m FinalizeExternalMachine) replyTo() chan<- error   { return m.Reply }
func (m SetMemoryTranslationTable) replyTo() chan<- error { return m.Reply }
func (m RunComponent) replyTo() chan<- error              { return m.Reply }
func (m AdvanceMachine) replyTo() chan<- error            { return m.Reply }
func (m SnapshotMachine) replyTo() chan<- error           { return m.Reply }
func (m RestoreMachine) replyTo() chan<- error            { return m.Reply }
func (m InspectComponent) replyTo() chan<- error          { return m.Reply }
func (m Shutdown) replyTo() chan<- error                  { return m.Reply }
