package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks the progress of a long running request, such as
// advancing a machine by many master cycles.
type ProgressBar struct {
	mu sync.Mutex

	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// progressStatus is the JSON form of a ProgressBar at one instant.
type progressStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`

	// Rate is the number of finished elements per second.
	Rate float64 `json:"rate"`

	// Remaining estimates the time left, in seconds. It is 0 until the
	// first element finishes.
	Remaining float64 `json:"remaining"`
}

func (b *ProgressBar) status(now time.Time) progressStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := progressStatus{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}

	elapsed := now.Sub(b.StartTime).Seconds()
	if elapsed > 0 && b.Finished > 0 {
		s.Rate = float64(b.Finished) / elapsed

		if b.Total > b.Finished {
			s.Remaining = float64(b.Total-b.Finished) / s.Rate
		}
	}

	return s
}
