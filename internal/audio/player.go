package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Player plays engine audio through the system output device.
type Player interface {
	// Play decodes data in the given container format and plays it,
	// blocking until playback finishes or ctx is canceled.
	Play(ctx context.Context, data []byte, format string) error
	Close() error
}

// OtoPlayer drives the system audio device through oto.
type OtoPlayer struct {
	mu      sync.Mutex
	context *oto.Context
	ready   bool
}

// NewOtoPlayer initializes the audio device for the engine's PCM format.
// Initialization can take a moment on some platforms while the audio
// subsystem comes up.
func NewOtoPlayer() (*OtoPlayer, error) {
	options := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("creating audio context: %w", err)
	}

	select {
	case <-readyChan:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio context initialization timeout")
	}

	log.Debug("audio context ready", "sample_rate", SampleRate, "channels", Channels)
	return &OtoPlayer{context: otoCtx, ready: true}, nil
}

// Play decodes and plays the audio, blocking until it finishes.
func (p *OtoPlayer) Play(ctx context.Context, data []byte, format string) error {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return fmt.Errorf("audio context not ready")
	}
	otoCtx := p.context
	p.mu.Unlock()

	pcm, err := DecodePCM(data, format)
	if err != nil {
		return err
	}
	if len(pcm) == 0 {
		return nil
	}

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()

	log.Debug("playing audio", "bytes", len(pcm), "seconds", fmt.Sprintf("%.2f", Duration(len(pcm))))
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close releases the audio device. oto v3 contexts have no Close, so
// this only marks the player unusable.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = false
	p.context = nil
	return nil
}

// LazyPlayer defers audio device initialization until the first Play.
// Requests that never play (exports, cache operations) should not
// touch the device at all.
type LazyPlayer struct {
	mu   sync.Mutex
	real *OtoPlayer
}

func NewLazyPlayer() *LazyPlayer {
	return &LazyPlayer{}
}

func (l *LazyPlayer) Play(ctx context.Context, data []byte, format string) error {
	l.mu.Lock()
	if l.real == nil {
		player, err := NewOtoPlayer()
		if err != nil {
			l.mu.Unlock()
			return err
		}
		l.real = player
	}
	player := l.real
	l.mu.Unlock()
	return player.Play(ctx, data, format)
}

func (l *LazyPlayer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.real == nil {
		return nil
	}
	return l.real.Close()
}

// MockPlayer records playback calls for tests.
type MockPlayer struct {
	mu     sync.Mutex
	Played [][]byte
	// Formats holds the container format of each Play call, in order.
	Formats []string
	// PlayErr, when set, is returned by every Play call.
	PlayErr error
	closed  bool
}

func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

func (m *MockPlayer) Play(ctx context.Context, data []byte, format string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlayErr != nil {
		return m.PlayErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.Played = append(m.Played, buf)
	m.Formats = append(m.Formats, format)
	return ctx.Err()
}

func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockPlayer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
