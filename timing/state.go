package timing

import (
	"fmt"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
)

// TaskState is the saved progress of one task.
type TaskState struct {
	Owner   naming.ID `json:"owner"`
	Name    string    `json:"name"`
	Phase   uint64    `json:"phase"`
	Pending uint64    `json:"pending"`
	Total   uint64    `json:"total"`
}

// State is the saved progress of a scheduler.
type State struct {
	Now   uint64      `json:"now"`
	Tasks []TaskState `json:"tasks"`
}

// State captures the current progress of every task.
func (s *Scheduler) State() State {
	st := State{
		Now:   s.now,
		Tasks: make([]TaskState, 0, len(s.tasks)),
	}

	for _, t := range s.tasks {
		st.Tasks = append(st.Tasks, TaskState{
			Owner:   t.Owner,
			Name:    t.Name,
			Phase:   t.phase,
			Pending: t.pending,
			Total:   t.total,
		})
	}

	return st
}

// Restore puts the scheduler back to a saved state. Every saved task must
// exist; tasks missing from the state restart from zero.
func (s *Scheduler) Restore(st State) error {
	if s.shutdown {
		return ErrShutdown
	}

	for _, ts := range st.Tasks {
		t, ok := s.index[taskKey{owner: ts.Owner, name: ts.Name}]
		if !ok {
			return fmt.Errorf("%w %q of %s in saved state",
				ErrUnknownTask, ts.Name, ts.Owner)
		}

		if ts.Phase >= t.ratio.Den() {
			return fmt.Errorf("timing: saved phase %d of task %q of %s is out of range",
				ts.Phase, ts.Name, ts.Owner)
		}
	}

	for _, t := range s.tasks {
		t.phase, t.pending, t.total = 0, 0, 0
	}

	for _, ts := range st.Tasks {
		t := s.index[taskKey{owner: ts.Owner, name: ts.Name}]
		t.phase = ts.Phase
		t.pending = ts.Pending
		t.total = ts.Total
	}

	s.now = st.Now
	s.sealed = true

	return nil
}
