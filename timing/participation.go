package timing

import (
	"fmt"
	"strings"
)

// Participation controls how a component is caught up with simulated time.
type Participation int

// The participation modes.
const (
	// None components are never caught up by the scheduler. Their tasks only
	// run when explicitly requested.
	None Participation = iota

	// OnDemand components are caught up lazily, right before another
	// component accesses them.
	OnDemand

	// SchedulerDriven components are caught up every time the scheduler
	// advances.
	SchedulerDriven
)

func (p Participation) String() string {
	switch p {
	case None:
		return "none"
	case OnDemand:
		return "on-demand"
	case SchedulerDriven:
		return "scheduler-driven"
	}

	return fmt.Sprintf("Participation(%d)", int(p))
}

// Valid tells if p is one of the defined modes.
func (p Participation) Valid() bool {
	return p >= None && p <= SchedulerDriven
}

// ParseParticipation parses the String form of a participation mode.
func ParseParticipation(s string) (Participation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "on-demand", "ondemand":
		return OnDemand, nil
	case "scheduler-driven", "schedulerdriven", "driven":
		return SchedulerDriven, nil
	}

	return None, fmt.Errorf("timing: unknown participation %q", s)
}
