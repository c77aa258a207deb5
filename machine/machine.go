// Package machine composes components into a running machine and applies the
// control messages that drive it.
package machine

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/syifan/goseth"

	"github.com/kay-lambdadelta/multiemu-sub003/builder"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/hooking"
	"github.com/kay-lambdadelta/multiemu-sub003/idgen"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Errors reported by a machine.
var (
	ErrShutdown      = errors.New("machine: shut down")
	ErrNotAssembling = errors.New("machine: not assembling")
	ErrNotRunning    = errors.New("machine: not running")
	ErrUnknownMsg    = errors.New("machine: unknown message")
)

// HookPosMessage is invoked after a message is applied. The hook item is the
// message, the detail is the error it produced, if any.
var HookPosMessage = &hooking.HookPos{Name: "Machine Message"}

// State is the lifecycle stage of a machine.
type State int32

// The lifecycle stages.
const (
	StateAssembling State = iota
	StateRunning
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateAssembling:
		return "assembling"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	}

	return fmt.Sprintf("State(%d)", int32(s))
}

// An Option configures a Machine.
type Option func(m *Machine)

// WithLogger sets the logger of the machine and its components.
func WithLogger(l logr.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithID sets the id of the machine instance.
func WithID(id string) Option {
	return func(m *Machine) {
		m.id = id
	}
}

// A Machine is a set of components sharing address spaces and a scheduler.
// It is owned by a single goroutine; other goroutines talk to it through a
// Runner.
type Machine struct {
	*hooking.HookableBase

	id      string
	logger  logr.Logger
	state   State
	catalog *builder.Catalog

	assembly *builder.Assembly
	config   *builder.Config
	table    *memory.Table
}

// New creates a machine in the assembling state. Components are constructed
// from catalog.
func New(catalog *builder.Catalog, master timing.Freq, opts ...Option) *Machine {
	m := &Machine{
		HookableBase: hooking.NewHookableBase(),
		logger:       logr.Discard(),
		catalog:      catalog,
	}

	for _, o := range opts {
		o(m)
	}

	if m.id == "" {
		m.id = idgen.NewParallel().Generate()
	}

	m.logger = m.logger.WithValues("machine", m.id)
	m.assembly = builder.NewAssembly(master, builder.WithLogger(m.logger))

	return m
}

// ID returns the id of the machine instance.
func (m *Machine) ID() string {
	return m.id
}

// State returns the lifecycle stage.
func (m *Machine) State() State {
	return m.state
}

// Logger returns the machine logger.
func (m *Machine) Logger() logr.Logger {
	return m.logger
}

// Assembly returns the assembly used before the machine is finalized, e.g.
// to declare address spaces.
func (m *Machine) Assembly() *builder.Assembly {
	return m.assembly
}

// Config returns the frozen configuration, or nil before finalization.
func (m *Machine) Config() *builder.Config {
	return m.config
}

// Table returns the installed memory table, or nil before finalization.
func (m *Machine) Table() *memory.Table {
	return m.table
}

// Now returns the master cycle count.
func (m *Machine) Now() uint64 {
	if m.config == nil {
		return 0
	}

	return m.config.Scheduler.Now()
}

// Read reads from the installed memory table.
func (m *Machine) Read(space memory.AddressSpaceID, addr uint64, buf []byte) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	return m.table.Read(space, addr, buf)
}

// Write writes through the installed memory table.
func (m *Machine) Write(space memory.AddressSpaceID, addr uint64, buf []byte) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	return m.table.Write(space, addr, buf)
}

func (m *Machine) mustBe(s State) error {
	switch {
	case m.state == s:
		return nil
	case m.state == StateShutdown:
		return ErrShutdown
	case s == StateAssembling:
		return ErrNotAssembling
	default:
		return ErrNotRunning
	}
}

// Apply applies one message and delivers its outcome to the reply channel of
// the message, if any.
func (m *Machine) Apply(msg Message) error {
	err := m.handle(msg)
	deliver(msg, err)

	return err
}

func (m *Machine) handle(msg Message) error {
	err := m.apply(msg)

	if err != nil {
		m.logger.V(1).Info("message failed",
			"message", fmt.Sprintf("%T", msg), "error", err.Error())
	} else {
		m.logger.V(1).Info("message applied",
			"message", fmt.Sprintf("%T", msg))
	}

	if m.NumHooks() > 0 {
		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosMessage,
			Item:   msg,
			Detail: err,
		})
	}

	return err
}

func deliver(msg Message, err error) {
	if reply := msg.replyTo(); reply != nil {
		reply <- err
	}
}

func (m *Machine) apply(msg Message) error {
	if m.state == StateShutdown {
		return ErrShutdown
	}

	switch msg := msg.(type) {
	case ConstructComponent:
		return m.construct(msg.ID)
	case FinalizeExternalMachine:
		return m.finalize()
	case SetMemoryTranslationTable:
		return m.setTable(msg.Table)
	case RunComponent:
		return m.runComponent(msg)
	case AdvanceMachine:
		return m.advance(msg.Cycles)
	case SnapshotMachine:
		return m.save(msg)
	case RestoreMachine:
		return m.restore(msg)
	case InspectComponent:
		return m.inspect(msg)
	case Shutdown:
		return m.shutdown()
	}

	return fmt.Errorf("%w %T", ErrUnknownMsg, msg)
}

func (m *Machine) construct(id naming.ID) error {
	if err := m.mustBe(StateAssembling); err != nil {
		return err
	}

	return m.catalog.Construct(m.assembly, id)
}

func (m *Machine) finalize() error {
	if err := m.mustBe(StateAssembling); err != nil {
		return err
	}

	cfg, err := m.assembly.Finalize()
	if err != nil {
		return err
	}

	for _, h := range m.Hooks() {
		cfg.Scheduler.AcceptHook(h)
		cfg.Table.AcceptHook(h)
	}

	m.config = cfg
	m.table = cfg.Table
	m.state = StateRunning

	m.logger.Info("machine running", "components", cfg.Registry.Len())

	return nil
}

func (m *Machine) setTable(t *memory.Table) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	if t == nil {
		return errors.New("machine: nil memory table")
	}

	installed := t.WithSynchronizer(m.config.Scheduler)
	if installed.NumHooks() == 0 {
		for _, h := range m.Hooks() {
			installed.AcceptHook(h)
		}
	}

	m.table = installed

	return nil
}

func (m *Machine) runComponent(msg RunComponent) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	if _, err := m.config.Registry.MustGet(msg.ID); err != nil {
		return err
	}

	task := msg.Task
	if task == "" {
		task = builder.TriggerTask
	}

	return m.config.Scheduler.Run(msg.ID, task, msg.Periods)
}

func (m *Machine) advance(cycles uint64) error {
	if err := m.mustBe(StateRunning); err != nil {
		return err
	}

	err := m.config.Scheduler.Advance(cycles)
	if errors.Is(err, timing.ErrShutdown) {
		m.state = StateShutdown
		return ErrShutdown
	}

	return err
}

func (m *Machine) inspect(msg InspectComponent) error {
	e, err := m.entry(msg.ID)
	if err != nil {
		return err
	}

	if msg.Destination == nil {
		return errors.New("machine: inspect without destination")
	}

	depth := msg.Depth
	if depth <= 0 {
		depth = 1
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(e.Component)
	serializer.SetMaxDepth(depth)

	if msg.Field != "" {
		if err := serializer.SetEntryPoint(strings.Split(msg.Field, ".")); err != nil {
			return fmt.Errorf("machine: field %q of %s: %w", msg.Field, msg.ID, err)
		}
	}

	var buf bytes.Buffer
	if err := serializer.Serialize(&buf); err != nil {
		return fmt.Errorf("machine: inspecting %s: %w", msg.ID, err)
	}

	_, err = buf.WriteTo(msg.Destination)

	return err
}

func (m *Machine) entry(id naming.ID) (component.Entry, error) {
	if m.state == StateAssembling {
		return component.Entry{}, ErrNotRunning
	}

	return m.config.Registry.MustGet(id)
}

func (m *Machine) shutdown() error {
	if m.config != nil {
		if err := m.config.Scheduler.SynchronizeAll(); err != nil &&
			!errors.Is(err, timing.ErrShutdown) {
			return err
		}

		m.config.Scheduler.Shutdown()
	}

	m.state = StateShutdown
	m.logger.Info("machine shut down", "cycle", m.Now())

	return nil
}
