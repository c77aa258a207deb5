package builder

import (
	"reflect"

	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// RegisterTask declares a task whose callback receives the component with its
// concrete type. The type is checked once, here; the callback runs without
// any further check.
func RegisterTask[C any](
	b *ComponentBuilder,
	name string,
	freq timing.Freq,
	fn func(c C, periods uint64),
) *ComponentBuilder {
	c, ok := b.component.(C)
	if !ok {
		b.fault("task %q wants a %s, component is a %T",
			name, reflect.TypeFor[C](), b.component)

		return b
	}

	return b.Task(name, freq, func(periods uint64) {
		fn(c, periods)
	})
}
