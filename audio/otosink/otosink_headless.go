//go:build headless

// Package otosink plays an audio queue through the system audio device.
// Headless builds have no device; the queue is left to other consumers.
package otosink

import "github.com/kay-lambdadelta/multiemu-sub003/audio"

// Player consumes an audio queue without a device.
type Player struct {
	source  *Source
	started bool
}

// NewPlayer creates a player for out.
func NewPlayer(out audio.Output) (*Player, error) {
	return &Player{source: NewSource(out.Queue)}, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.started = true
}

// Close stops playback.
func (p *Player) Close() error {
	p.started = false
	return nil
}

// IsStarted tells if the player is playing.
func (p *Player) IsStarted() bool {
	return p.started
}
