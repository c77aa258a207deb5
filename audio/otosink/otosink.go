//go:build !headless

// Package otosink plays an audio queue through the system audio device.
package otosink

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/kay-lambdadelta/multiemu-sub003/audio"
)

// Player drains an audio.Queue into an oto player. Read runs on the oto
// thread and only touches the consumer side of the queue.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	source *Source

	started bool
	mutex   sync.Mutex
}

// NewPlayer opens the audio device at the sample rate of out.
func NewPlayer(out audio.Output) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   out.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("otosink: opening device for %s: %w",
			out.FullName(), err)
	}
	<-ready

	p := &Player{
		ctx:    ctx,
		source: NewSource(out.Queue),
	}
	p.player = ctx.NewPlayer(p.source)

	return p, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started {
		p.player.Play()
		p.started = true
	}
}

// Close stops playback and releases the player.
func (p *Player) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.started = false

	return p.player.Close()
}

// IsStarted tells if the player is playing.
func (p *Player) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.started
}
