// Package logging builds the loggers used by machines and their tools.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Verbosity levels used across the machine core.
const (
	// LevelLifecycle logs construction, finalization and shutdown.
	LevelLifecycle = 0

	// LevelMessages logs every control message.
	LevelMessages = 1

	// LevelTasks logs every task run.
	LevelTasks = 2

	// LevelAccess logs every faulting memory access.
	LevelAccess = 4
)

// New creates a logger writing one line per entry to w. Entries more verbose
// than verbosity are dropped.
func New(w io.Writer, verbosity int) logr.Logger {
	var mu sync.Mutex

	return funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()

		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
		} else {
			fmt.Fprintln(w, args)
		}
	}, funcr.Options{
		Verbosity: verbosity,
	})
}
