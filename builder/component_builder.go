package builder

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/audio"
	"github.com/kay-lambdadelta/multiemu-sub003/component"
	"github.com/kay-lambdadelta/multiemu-sub003/input"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Task names bound to capabilities.
const (
	TickTask    = "tick"
	TriggerTask = "trigger"
)

type stagedTask struct {
	name        string
	freq        timing.Freq
	fn          timing.TaskFunc
	requestOnly bool
}

// A ComponentBuilder stages the declarations of one component. Nothing is
// checked against other components until the assembly is finalized.
type ComponentBuilder struct {
	assembly      *Assembly
	component     component.Component
	caps          component.Capabilities
	participation timing.Participation
	logger        logr.Logger

	claims   []memory.Claim
	tasks    []stagedTask
	outputs  []audio.Output
	gamepads []*input.Gamepad
	faults   []error
}

// ID returns the id of the component being declared.
func (b *ComponentBuilder) ID() naming.ID {
	return b.component.ID()
}

// Component returns the component being declared.
func (b *ComponentBuilder) Component() component.Component {
	return b.component
}

// Capabilities returns the capabilities discovered on the component.
func (b *ComponentBuilder) Capabilities() component.Capabilities {
	return b.caps
}

// Logger returns the logger of the component.
func (b *ComponentBuilder) Logger() logr.Logger {
	return b.logger
}

// Assembly returns the assembly the component belongs to.
func (b *ComponentBuilder) Assembly() *Assembly {
	return b.assembly
}

func (b *ComponentBuilder) fault(format string, args ...any) {
	err := fmt.Errorf("builder: %s: "+format,
		append([]any{b.component.ID()}, args...)...)
	b.faults = append(b.faults, err)
}

func (b *ComponentBuilder) open() bool {
	if b.assembly.finalized {
		b.faults = append(b.faults, ErrFinalized)
		return false
	}

	return true
}

// Participation sets how the component is caught up with simulated time. The
// default is timing.SchedulerDriven.
func (b *ComponentBuilder) Participation(p timing.Participation) *ComponentBuilder {
	if !b.open() {
		return b
	}

	if !p.Valid() {
		b.fault("invalid participation %s", p)
		return b
	}

	b.participation = p

	return b
}

// MapRead claims rng of space for reads answered by fn.
func (b *ComponentBuilder) MapRead(
	space memory.AddressSpaceID,
	rng memory.Range,
	fn memory.ReadFunc,
) *ComponentBuilder {
	if !b.open() {
		return b
	}

	b.claims = append(b.claims, memory.Claim{
		Space:     space,
		Direction: memory.Read,
		Range:     rng,
		Owner:     b.component.ID(),
		Read:      fn,
	})

	return b
}

// MapWrite claims rng of space for writes handled by fn.
func (b *ComponentBuilder) MapWrite(
	space memory.AddressSpaceID,
	rng memory.Range,
	fn memory.WriteFunc,
) *ComponentBuilder {
	if !b.open() {
		return b
	}

	b.claims = append(b.claims, memory.Claim{
		Space:     space,
		Direction: memory.Write,
		Range:     rng,
		Owner:     b.component.ID(),
		Write:     fn,
	})

	return b
}

// MapReadable claims rng of space for reads answered by the Readable
// capability of the component.
func (b *ComponentBuilder) MapReadable(
	space memory.AddressSpaceID,
	rng memory.Range,
) *ComponentBuilder {
	r := b.caps.Readable
	if r == nil {
		b.fault("maps %s for reads but is not readable", rng)
		return b
	}

	return b.MapRead(space, rng, func(addr uint64, buf []byte) error {
		return r.ReadMemory(space, addr, buf)
	})
}

// MapWritable claims rng of space for writes handled by the Writable
// capability of the component.
func (b *ComponentBuilder) MapWritable(
	space memory.AddressSpaceID,
	rng memory.Range,
) *ComponentBuilder {
	w := b.caps.Writable
	if w == nil {
		b.fault("maps %s for writes but is not writable", rng)
		return b
	}

	return b.MapWrite(space, rng, func(addr uint64, buf []byte) error {
		return w.WriteMemory(space, addr, buf)
	})
}

// Task declares a periodic task. The name must be unique within the
// component.
func (b *ComponentBuilder) Task(
	name string,
	freq timing.Freq,
	fn timing.TaskFunc,
) *ComponentBuilder {
	if !b.open() {
		return b
	}

	for _, t := range b.tasks {
		if t.name == name {
			b.fault("%w %q", timing.ErrDuplicateTask, name)
			return b
		}
	}

	b.tasks = append(b.tasks, stagedTask{name: name, freq: freq, fn: fn})

	return b
}

// Ticks binds the Ticker capability as the task "tick" running at freq.
func (b *ComponentBuilder) Ticks(freq timing.Freq) *ComponentBuilder {
	t := b.caps.Ticker
	if t == nil {
		b.fault("ticks at %s but is not a ticker", freq)
		return b
	}

	return b.Task(TickTask, freq, t.Tick)
}

// Triggered binds the Trigger capability as the task "trigger". The task
// never runs on its own; it runs when it is requested.
func (b *ComponentBuilder) Triggered() *ComponentBuilder {
	t := b.caps.Trigger
	if t == nil {
		b.fault("is triggered but is not a trigger")
		return b
	}

	b.Task(TriggerTask, b.assembly.master, t.Trigger)

	if n := len(b.tasks); n > 0 && b.tasks[n-1].name == TriggerTask {
		b.tasks[n-1].requestOnly = true
	}

	return b
}

// AudioOutput creates the queue of a named audio output. The component keeps
// the queue and pushes samples into it from its tasks.
func (b *ComponentBuilder) AudioOutput(
	name string,
	sampleRate int,
	capacity int,
) (*audio.Queue, error) {
	if b.assembly.finalized {
		return nil, ErrFinalized
	}

	if sampleRate <= 0 || capacity <= 0 {
		err := fmt.Errorf("builder: %s: audio output %q needs a positive "+
			"sample rate and capacity, got %d Hz and %d samples",
			b.component.ID(), name, sampleRate, capacity)
		b.faults = append(b.faults, err)

		return nil, err
	}

	q := audio.NewQueue(capacity)
	b.outputs = append(b.outputs, audio.Output{
		Owner:      b.component.ID(),
		Name:       name,
		SampleRate: sampleRate,
		Queue:      q,
	})

	return q, nil
}

// Gamepad creates a named virtual gamepad that the component samples.
func (b *ComponentBuilder) Gamepad(name string, buttons ...string) (*input.Gamepad, error) {
	if b.assembly.finalized {
		return nil, ErrFinalized
	}

	g, err := input.NewGamepad(b.component.ID(), name, buttons...)
	if err != nil {
		b.faults = append(b.faults, err)
		return nil, err
	}

	b.gamepads = append(b.gamepads, g)

	return g, nil
}
