// Package audio owns the single narration playback resource. Nothing
// else in the system touches the output device; decode and playback
// failures are contained here and logged, never surfaced as turn
// failures.
package audio

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Source is one playable narration track. At most one Source is active
// at a time.
type Source interface {
	Play()
	IsPlaying() bool
	SetGain(v float64)
	Close() error
}

// Sink is the underlying output device. Acquired lazily on first use,
// since opening it is typically gated behind a user action.
type Sink interface {
	NewSource(pcm []byte) (Source, error)
}

const (
	rampDuration = 120 * time.Millisecond
	rampSteps    = 12
)

// Manager mediates playback, volume and mute over a lazily acquired
// Sink.
type Manager struct {
	mu       sync.Mutex
	openSink func() (Sink, error)
	sink     Sink
	src      Source
	playing  bool
	volume   float64
	muted    bool
	gain     float64 // gain currently applied to the live source
	rampGen  int
}

// NewManager returns a Manager that acquires its device through
// openSink on first playback.
func NewManager(openSink func() (Sink, error)) *Manager {
	return &Manager{openSink: openSink, volume: 0.5}
}

// Play decodes and starts a narration track, stopping any previous one
// first so at most one source is audible.
func (m *Manager) Play(pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sink == nil {
		sink, err := m.openSink()
		if err != nil {
			return fmt.Errorf("acquiring audio output: %w", err)
		}
		m.sink = sink
	}

	m.stopLocked()

	src, err := m.sink.NewSource(pcm)
	if err != nil {
		return fmt.Errorf("decoding narration: %w", err)
	}
	m.gain = m.gainLocked()
	src.SetGain(m.gain)
	src.Play()
	m.src = src
	m.playing = true

	go m.watch(src)
	return nil
}

// watch clears the playing flag once src drains naturally.
func (m *Manager) watch(src Source) {
	for src.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	m.mu.Lock()
	if m.src == src {
		m.playing = false
	}
	m.mu.Unlock()
}

// Stop halts the active source if any. Safe to call when nothing is
// playing or when playback already finished; idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.src == nil {
		return
	}
	if err := m.src.Close(); err != nil {
		log.Printf("audio: stopping source: %v", err)
	}
	m.src = nil
	m.playing = false
}

// IsPlaying reports whether a narration track is currently audible.
func (m *Manager) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// SetVolume updates the target gain, ramped against the live source.
func (m *Manager) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.volume = v
	m.rampLocked()
}

// SetMuted toggles mute. The underlying volume is preserved so unmuting
// restores it.
func (m *Manager) SetMuted(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = b
	m.rampLocked()
}

func (m *Manager) gainLocked() float64 {
	if m.muted {
		return 0
	}
	return m.volume
}

// rampLocked transitions the live source's gain toward the current
// target in small steps instead of jumping. A newer ramp supersedes an
// older one still in flight.
func (m *Manager) rampLocked() {
	src := m.src
	if src == nil {
		return
	}
	m.rampGen++
	gen := m.rampGen
	start := m.gain
	target := m.gainLocked()

	go func() {
		step := rampDuration / rampSteps
		for i := 1; i <= rampSteps; i++ {
			time.Sleep(step)
			m.mu.Lock()
			if m.rampGen != gen || m.src != src {
				m.mu.Unlock()
				return
			}
			// Linear interpolation; the final step lands exactly on
			// the target.
			g := start + (target-start)*float64(i)/rampSteps
			if i == rampSteps {
				g = target
			}
			src.SetGain(g)
			m.gain = g
			m.mu.Unlock()
		}
	}()
}
