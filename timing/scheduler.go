package timing

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/kay-lambdadelta/multiemu-sub003/hooking"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// Errors reported by the Scheduler.
var (
	ErrShutdown      = errors.New("timing: scheduler is shut down")
	ErrSealed        = errors.New("timing: scheduler is sealed")
	ErrDuplicateTask = errors.New("timing: duplicate task")
	ErrUnknownTask   = errors.New("timing: unknown task")
)

// HookPosTaskRun is invoked after a task callback returns. The hook item is
// a TaskRun.
var HookPosTaskRun = &hooking.HookPos{Name: "Task Run"}

// A TaskFunc executes a number of whole periods of a task.
type TaskFunc func(periods uint64)

// TaskRun describes one invocation of a task callback.
type TaskRun struct {
	Owner   naming.ID
	Task    string
	Periods uint64

	// Now is the master cycle the task was caught up to.
	Now uint64

	// Requested is set when the run was asked for explicitly rather than
	// driven by the scheduler.
	Requested bool
}

// TaskInfo describes a registered task.
type TaskInfo struct {
	Owner         naming.ID
	Name          string
	Freq          Freq
	Participation Participation
}

type taskKey struct {
	owner naming.ID
	name  string
}

type task struct {
	TaskInfo

	ratio Ratio
	fn    TaskFunc

	// phase is the fractional period carried over, in units of 1/ratio.Den().
	phase   uint64
	pending uint64
	total   uint64
}

// accumulate adds n master cycles to the phase of the task and returns the
// whole periods that completed.
func (t *task) accumulate(n uint64) uint64 {
	if n == 0 {
		return 0
	}

	q := t.ratio.Den()
	hi, lo := bits.Mul64(n, t.ratio.Num())
	lo, carry := bits.Add64(lo, t.phase, 0)
	hi += carry

	if hi >= q {
		half := n / 2
		return t.accumulate(half) + t.accumulate(n-half)
	}

	periods, rem := bits.Div64(hi, lo, q)
	t.phase = rem

	return periods
}

// A Scheduler advances the simulated time of a machine and runs the tasks of
// its components. It is owned by the machine thread and does no locking.
type Scheduler struct {
	*hooking.HookableBase

	registry *FrequencyRegistry
	tasks    []*task
	index    map[taskKey]*task
	byOwner  map[naming.ID][]*task

	now      uint64
	sealed   bool
	shutdown bool
	running  []naming.ID
}

// NewScheduler creates a scheduler whose task frequencies are relative to the
// master clock of registry.
func NewScheduler(registry *FrequencyRegistry) *Scheduler {
	return &Scheduler{
		HookableBase: hooking.NewHookableBase(),
		registry:     registry,
		index:        make(map[taskKey]*task),
		byOwner:      make(map[naming.ID][]*task),
	}
}

// Registry returns the frequency registry of the scheduler.
func (s *Scheduler) Registry() *FrequencyRegistry {
	return s.registry
}

// AddTask registers a task. Tasks run in the order they are added. The task
// name must be unique within its owner.
func (s *Scheduler) AddTask(
	owner naming.ID,
	name string,
	freq Freq,
	fn TaskFunc,
	p Participation,
) error {
	switch {
	case s.shutdown:
		return ErrShutdown
	case s.sealed:
		return fmt.Errorf("%w: cannot add task %q of %s", ErrSealed, name, owner)
	case name == "":
		return fmt.Errorf("timing: task of %s has no name", owner)
	case fn == nil:
		return fmt.Errorf("timing: task %q of %s has no callback", name, owner)
	case !p.Valid():
		return fmt.Errorf("timing: task %q of %s has invalid participation %s",
			name, owner, p)
	}

	key := taskKey{owner: owner, name: name}
	if _, dup := s.index[key]; dup {
		return fmt.Errorf("%w %q of %s", ErrDuplicateTask, name, owner)
	}

	domain, err := s.registry.RegisterFrequency(freq)
	if err != nil {
		return fmt.Errorf("timing: task %q of %s: %w", name, owner, err)
	}

	t := &task{
		TaskInfo: TaskInfo{
			Owner:         owner,
			Name:          name,
			Freq:          freq,
			Participation: p,
		},
		ratio: domain.Ratio(),
		fn:    fn,
	}

	s.tasks = append(s.tasks, t)
	s.index[key] = t
	s.byOwner[owner] = append(s.byOwner[owner], t)

	return nil
}

// Seal forbids adding more tasks.
func (s *Scheduler) Seal() {
	s.sealed = true
}

// Tasks lists the registered tasks in run order.
func (s *Scheduler) Tasks() []TaskInfo {
	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		infos = append(infos, t.TaskInfo)
	}

	return infos
}

// Now returns the master cycle count.
func (s *Scheduler) Now() uint64 {
	return s.now
}

// IsShutdown tells if Shutdown was called.
func (s *Scheduler) IsShutdown() bool {
	return s.shutdown
}

// Shutdown stops the scheduler. Every later call fails with ErrShutdown.
func (s *Scheduler) Shutdown() {
	s.shutdown = true
}

// Advance moves simulated time forward by n master cycles. Scheduler driven
// tasks run with the whole periods that elapsed; on-demand tasks bank them
// until their owner is synchronized.
func (s *Scheduler) Advance(n uint64) error {
	if s.shutdown {
		return ErrShutdown
	}

	s.sealed = true

	if n > ^uint64(0)-s.now {
		return fmt.Errorf("%w: advancing %d cycles from %d",
			ErrTickOverflow, n, s.now)
	}

	due := make([]uint64, len(s.tasks))

	for i, t := range s.tasks {
		switch t.Participation {
		case SchedulerDriven:
			due[i] = t.accumulate(n)
		case OnDemand:
			t.pending += t.accumulate(n)
		}
	}

	s.now += n

	for i, t := range s.tasks {
		if s.shutdown {
			return ErrShutdown
		}

		if due[i] > 0 {
			s.run(t, due[i], false)
		}
	}

	return nil
}

// Synchronize catches up the on-demand tasks of owner. Owners that are
// currently running are not re-entered.
func (s *Scheduler) Synchronize(owner naming.ID) {
	if s.shutdown || s.isRunning(owner) {
		return
	}

	for _, t := range s.byOwner[owner] {
		if t.pending == 0 {
			continue
		}

		periods := t.pending
		t.pending = 0
		s.run(t, periods, false)
	}
}

// SynchronizeAll catches up every on-demand task, e.g. before the machine
// state is saved.
func (s *Scheduler) SynchronizeAll() error {
	if s.shutdown {
		return ErrShutdown
	}

	for _, t := range s.tasks {
		if t.pending == 0 {
			continue
		}

		periods := t.pending
		t.pending = 0
		s.run(t, periods, false)
	}

	return nil
}

// Run executes periods of one task outside of the regular advance. Periods
// the owner still has pending are run first.
func (s *Scheduler) Run(owner naming.ID, name string, periods uint64) error {
	if s.shutdown {
		return ErrShutdown
	}

	t, ok := s.index[taskKey{owner: owner, name: name}]
	if !ok {
		return fmt.Errorf("%w %q of %s", ErrUnknownTask, name, owner)
	}

	s.Synchronize(owner)

	if periods > 0 {
		s.run(t, periods, true)
	}

	return nil
}

// Periods returns the number of periods a task has executed so far.
func (s *Scheduler) Periods(owner naming.ID, name string) (uint64, error) {
	t, ok := s.index[taskKey{owner: owner, name: name}]
	if !ok {
		return 0, fmt.Errorf("%w %q of %s", ErrUnknownTask, name, owner)
	}

	return t.total, nil
}

// Pending returns the number of periods an on-demand task has banked.
func (s *Scheduler) Pending(owner naming.ID, name string) (uint64, error) {
	t, ok := s.index[taskKey{owner: owner, name: name}]
	if !ok {
		return 0, fmt.Errorf("%w %q of %s", ErrUnknownTask, name, owner)
	}

	return t.pending, nil
}

func (s *Scheduler) isRunning(owner naming.ID) bool {
	for _, r := range s.running {
		if r == owner {
			return true
		}
	}

	return false
}

func (s *Scheduler) run(t *task, periods uint64, requested bool) {
	s.running = append(s.running, t.Owner)
	t.fn(periods)
	s.running = s.running[:len(s.running)-1]

	t.total += periods

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosTaskRun,
			Item: TaskRun{
				Owner:     t.Owner,
				Task:      t.Name,
				Periods:   periods,
				Now:       s.now,
				Requested: requested,
			},
		})
	}
}
