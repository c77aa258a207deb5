package audio

import "github.com/kay-lambdadelta/multiemu-sub003/naming"

// An Output is a named audio endpoint of a machine.
type Output struct {
	Owner      naming.ID
	Name       string
	SampleRate int
	Queue      *Queue
}

// FullName returns the name of the output prefixed by its owner.
func (o Output) FullName() string {
	return string(o.Owner.Child(o.Name))
}
