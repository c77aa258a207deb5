package tracing

import (
	"sync"

	"github.com/kay-lambdadelta/multiemu-sub003/datarecording"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// Tables written by a DBTracer.
const (
	TaskRunTable     = "task_runs"
	AccessFaultTable = "access_faults"
)

// TaskRunEntry is a row of the task run table.
type TaskRunEntry struct {
	Owner     string
	Task      string
	Periods   uint64
	Now       uint64
	Requested bool
}

// AccessFaultEntry is a row of the access fault table. One row is written
// per failing sub-range.
type AccessFaultEntry struct {
	Space     uint16
	Direction string
	Address   uint64
	Width     int
	Start     uint64
	End       uint64
	Cause     string
	Owner     string
	Error     string
}

// DBTracer is a tracer that stores task runs and access faults into a
// DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	filter  TaskFilter
	err     error
}

// NewDBTracer creates the tables of the tracer in backend.
func NewDBTracer(backend datarecording.DataRecorder, filter TaskFilter) (*DBTracer, error) {
	if filter == nil {
		filter = AllTasks
	}

	if err := backend.CreateTable(TaskRunTable, TaskRunEntry{}); err != nil {
		return nil, err
	}

	if err := backend.CreateTable(AccessFaultTable, AccessFaultEntry{}); err != nil {
		return nil, err
	}

	return &DBTracer{backend: backend, filter: filter}, nil
}

// TaskRun records a task run.
func (t *DBTracer) TaskRun(run timing.TaskRun) {
	if !t.filter(run) {
		return
	}

	t.insert(TaskRunTable, TaskRunEntry{
		Owner:     string(run.Owner),
		Task:      run.Task,
		Periods:   run.Periods,
		Now:       run.Now,
		Requested: run.Requested,
	})
}

// AccessFault records every failing sub-range of an access.
func (t *DBTracer) AccessFault(err *memory.AccessError) {
	for _, f := range err.Faults {
		entry := AccessFaultEntry{
			Space:     uint16(err.Space),
			Direction: err.Direction.String(),
			Address:   err.Address,
			Width:     err.Width,
			Start:     f.Range.Start,
			End:       f.Range.End,
			Cause:     f.Cause.String(),
			Owner:     string(f.Owner),
		}

		if f.Err != nil {
			entry.Error = f.Err.Error()
		}

		t.insert(AccessFaultTable, entry)
	}
}

func (t *DBTracer) insert(table string, entry any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.backend.InsertData(table, entry); err != nil && t.err == nil {
		t.err = err
	}
}

// Err returns the first error the backend reported.
func (t *DBTracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}
