package audio

import (
	"bytes"
	"fmt"

	"github.com/ebitengine/oto/v3"
)

// Narration arrives as raw PCM at a fixed layout: 24 kHz, mono, 16-bit
// little endian.
const (
	sampleRate   = 24000
	channelCount = 1
)

type otoSink struct {
	ctx *oto.Context
}

// OpenOtoSink opens the system audio device at the narration layout.
// Pass this to NewManager; the device is not touched until the first
// Play call invokes it.
func OpenOtoSink() (Sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready
	return &otoSink{ctx: ctx}, nil
}

func (s *otoSink) NewSource(pcm []byte) (Source, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	// Truncate a trailing odd byte rather than feeding the device a
	// half sample.
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	return &otoSource{player: s.ctx.NewPlayer(bytes.NewReader(pcm))}, nil
}

type otoSource struct {
	player *oto.Player
}

func (s *otoSource) Play()              { s.player.Play() }
func (s *otoSource) IsPlaying() bool    { return s.player.IsPlaying() }
func (s *otoSource) SetGain(v float64)  { s.player.SetVolume(v) }
func (s *otoSource) Close() error       { return s.player.Close() }
