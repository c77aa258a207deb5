package builder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFinalized is returned by every call made on an assembly after it was
// finalized.
var ErrFinalized = errors.New("builder: assembly already finalized")

// ErrUnknownKind is returned when a catalog has no factory for an id.
var ErrUnknownKind = errors.New("builder: no factory")

// A ConstructionError aborts the assembly of a machine. It lists every fault
// that was staged, in a deterministic order.
type ConstructionError struct {
	Faults []error
}

func (e *ConstructionError) Error() string {
	msgs := make([]string, 0, len(e.Faults))
	for _, f := range e.Faults {
		msgs = append(msgs, f.Error())
	}

	return fmt.Sprintf("builder: machine assembly failed with %d fault(s):\n\t%s",
		len(e.Faults), strings.Join(msgs, "\n\t"))
}

// Unwrap exposes the faults to errors.Is and errors.As.
func (e *ConstructionError) Unwrap() []error {
	return e.Faults
}
