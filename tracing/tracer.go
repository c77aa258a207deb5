// Package tracing collects what the tasks and the memory table of a machine
// do, through hooks.
package tracing

import (
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// A Tracer receives the events a TraceHook observes.
type Tracer interface {
	// TaskRun is called after a task callback returns.
	TaskRun(run timing.TaskRun)

	// AccessFault is called when an access to the memory table fails.
	AccessFault(err *memory.AccessError)
}

// TaskFilter tells if a task run should be traced.
type TaskFilter func(run timing.TaskRun) bool

// AllTasks traces every task run.
func AllTasks(timing.TaskRun) bool {
	return true
}
