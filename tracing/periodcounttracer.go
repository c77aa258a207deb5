package tracing

import (
	"sync"

	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// TaskKey identifies a task.
type TaskKey struct {
	Owner naming.ID
	Task  string
}

// PeriodCountTracer counts how many times each task ran and how many periods
// it executed, and how many accesses faulted per cause.
type PeriodCountTracer struct {
	filter TaskFilter
	lock   sync.Mutex

	keys    []TaskKey
	runs    map[TaskKey]uint64
	periods map[TaskKey]uint64
	faults  map[memory.Cause]uint64
}

// NewPeriodCountTracer creates a new PeriodCountTracer.
func NewPeriodCountTracer(filter TaskFilter) *PeriodCountTracer {
	if filter == nil {
		filter = AllTasks
	}

	return &PeriodCountTracer{
		filter:  filter,
		runs:    make(map[TaskKey]uint64),
		periods: make(map[TaskKey]uint64),
		faults:  make(map[memory.Cause]uint64),
	}
}

// TaskRun counts a task run.
func (t *PeriodCountTracer) TaskRun(run timing.TaskRun) {
	if !t.filter(run) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	key := TaskKey{Owner: run.Owner, Task: run.Task}
	if _, ok := t.runs[key]; !ok {
		t.keys = append(t.keys, key)
	}

	t.runs[key]++
	t.periods[key] += run.Periods
}

// AccessFault counts the failing sub-ranges of an access by cause.
func (t *PeriodCountTracer) AccessFault(err *memory.AccessError) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, f := range err.Faults {
		t.faults[f.Cause]++
	}
}

// Tasks returns the tasks seen so far, in the order they first ran.
func (t *PeriodCountTracer) Tasks() []TaskKey {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]TaskKey(nil), t.keys...)
}

// Runs returns how many times a task ran.
func (t *PeriodCountTracer) Runs(key TaskKey) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.runs[key]
}

// Periods returns how many periods a task executed.
func (t *PeriodCountTracer) Periods(key TaskKey) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.periods[key]
}

// Faults returns how many sub-ranges failed with a cause.
func (t *PeriodCountTracer) Faults(cause memory.Cause) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.faults[cause]
}
