// Package idgen generates identifiers for machine instances and recording
// sessions.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// NewSequential returns a deterministic generator whose first emitted ID is
// prefix followed by "1".
func NewSequential(prefix string) Generator {
	return &sequentialGenerator{prefix: prefix}
}

type sequentialGenerator struct {
	prefix string
	next   atomic.Uint64
}

func (g *sequentialGenerator) Generate() string {
	return g.prefix + strconv.FormatUint(g.next.Add(1), 10)
}

// NewParallel returns a generator of globally unique ids. The ids are not
// deterministic.
func NewParallel() Generator {
	return parallelGenerator{}
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() string {
	return xid.New().String()
}
