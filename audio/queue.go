// Package audio carries samples from audio-producing components on the
// machine thread to an audio backend on another thread.
package audio

import (
	"fmt"
	"math"
	"math/bits"
	"sync/atomic"
)

// A Queue is a bounded single-producer single-consumer ring of mono samples.
// The producer is the machine thread, the consumer is the audio backend. When
// the consumer runs dry it repeats the last sample it observed rather than
// falling to silence.
type Queue struct {
	buf  []float32
	mask uint64

	// head is owned by the consumer, tail by the producer.
	head atomic.Uint64
	tail atomic.Uint64

	last      atomic.Uint32
	dropped   atomic.Uint64
	underruns atomic.Uint64
}

// NewQueue creates a queue that holds at least capacity samples. The capacity
// is rounded up to a power of two. It panics if capacity is not positive.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		panic(fmt.Sprintf("audio: queue capacity must be positive, got %d",
			capacity))
	}

	size := uint64(1) << bits.Len64(uint64(capacity-1))

	return &Queue{
		buf:  make([]float32, size),
		mask: size - 1,
	}
}

// Cap returns the number of samples the queue can hold.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Len returns the number of queued samples.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push appends a sample. It must only be called by the producer. If the queue
// is full the sample is dropped and Push returns false.
func (q *Queue) Push(s float32) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}

	q.buf[tail&q.mask] = s
	q.tail.Store(tail + 1)

	return true
}

// TryPop removes the oldest sample. It must only be called by the consumer.
func (q *Queue) TryPop() (float32, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return 0, false
	}

	s := q.buf[head&q.mask]
	q.head.Store(head + 1)
	q.last.Store(math.Float32bits(s))

	return s, true
}

// Pop removes the oldest sample. On underrun it returns the last sample the
// consumer observed. It must only be called by the consumer.
func (q *Queue) Pop() float32 {
	if s, ok := q.TryPop(); ok {
		return s
	}

	q.underruns.Add(1)

	return q.Last()
}

// Drain fills dst entirely and returns how many samples came from the queue.
// The rest of dst repeats the last observed sample.
func (q *Queue) Drain(dst []float32) int {
	n := 0
	for n < len(dst) {
		s, ok := q.TryPop()
		if !ok {
			break
		}

		dst[n] = s
		n++
	}

	if n < len(dst) {
		q.underruns.Add(1)

		last := q.Last()
		for i := n; i < len(dst); i++ {
			dst[i] = last
		}
	}

	return n
}

// Last returns the last sample the consumer observed.
func (q *Queue) Last() float32 {
	return math.Float32frombits(q.last.Load())
}

// Dropped returns the number of samples rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Underruns returns the number of times the consumer found the queue empty.
func (q *Queue) Underruns() uint64 {
	return q.underruns.Load()
}
