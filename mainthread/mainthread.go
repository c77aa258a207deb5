// Package mainthread guards resources that may only be touched from the
// designated main thread of the process, such as graphics contexts.
package mainthread

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
)

// Errors reported by thread-owned resources.
var (
	ErrNotDesignated = errors.New("mainthread: no main thread designated")
	ErrWrongThread   = errors.New("mainthread: resource used off the main thread")
	ErrClosed        = errors.New("mainthread: resource already closed")
)

var mainThread atomic.Int64

// Designate locks the calling goroutine to its OS thread and records that
// thread as the main thread. It is usually called from an init function of
// package main.
func Designate() {
	runtime.LockOSThread()
	mainThread.Store(currentThread())
}

// Release undoes Designate. It must be called from the main thread.
func Release() {
	mainThread.Store(0)
	runtime.UnlockOSThread()
}

// IsMain tells if the caller runs on the main thread.
func IsMain() bool {
	tid := mainThread.Load()
	return tid != 0 && tid == currentThread()
}

// Check returns an error unless the caller runs on the main thread.
func Check() error {
	tid := mainThread.Load()
	if tid == 0 {
		return ErrNotDesignated
	}

	if cur := currentThread(); cur != tid {
		return fmt.Errorf("%w: thread %d, main thread %d",
			ErrWrongThread, cur, tid)
	}

	return nil
}

// Owned wraps a value that may only be used on the main thread.
type Owned[T any] struct {
	value  T
	closed bool
}

// New wraps v. It must be called on the main thread.
func New[T any](v T) (*Owned[T], error) {
	if err := Check(); err != nil {
		return nil, err
	}

	return &Owned[T]{value: v}, nil
}

// Get returns the wrapped value.
func (o *Owned[T]) Get() (T, error) {
	var zero T

	if err := Check(); err != nil {
		return zero, err
	}

	if o.closed {
		return zero, ErrClosed
	}

	return o.value, nil
}

// MustGet returns the wrapped value and panics when used off the main thread
// or after Close.
func (o *Owned[T]) MustGet() T {
	v, err := o.Get()
	if err != nil {
		panic(err)
	}

	return v
}

// Close releases the value with release, which may be nil. It must be called
// on the main thread, once.
func (o *Owned[T]) Close(release func(T)) error {
	if err := Check(); err != nil {
		return err
	}

	if o.closed {
		return ErrClosed
	}

	o.closed = true
	if release != nil {
		release(o.value)
	}

	var zero T
	o.value = zero

	return nil
}
