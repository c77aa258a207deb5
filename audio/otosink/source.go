package otosink

import (
	"encoding/binary"
	"math"

	"github.com/kay-lambdadelta/multiemu-sub003/audio"
)

// A Source encodes the samples of a queue as float32 little endian bytes.
type Source struct {
	queue   *audio.Queue
	samples []float32
}

// NewSource creates a Source reading from q.
func NewSource(q *audio.Queue) *Source {
	return &Source{
		queue:   q,
		samples: make([]float32, 1024),
	}
}

// Read fills p with whole samples. It never blocks and never fails; missing
// samples repeat the last one.
func (s *Source) Read(p []byte) (int, error) {
	n := len(p) / 4
	if len(s.samples) < n {
		s.samples = make([]float32, n)
	}

	samples := s.samples[:n]
	s.queue.Drain(samples)

	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}

	return n * 4, nil
}
