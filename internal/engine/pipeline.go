package engine

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/jonchampaigne/ScarSignal/internal/models"
)

// Asset generation is detached from the turn: up to three images and
// one narration track are requested concurrently, and each result is
// applied only if the segment it was issued for is still current. The
// token is an immutable copy of the segment id taken at kick time;
// staleness is re-checked per result, because results can arrive after
// the player has moved on.

const (
	maxImages     = 3
	imageAttempts = 3
)

// kickAssetsLocked starts the background asset work for a freshly
// committed segment. Caller holds e.mu.
func (e *Engine) kickAssetsLocked(seg models.StorySegment) {
	token := seg.ID
	e.busyToken = token
	if !e.busy {
		e.busy = true
		e.emit(Event{Kind: EventBusyChanged})
	}

	prompts := seg.VisualPrompts
	if len(prompts) > maxImages {
		prompts = prompts[:maxImages]
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.generateNarration(token, seg.Narrative)
	}()
	for _, prompt := range prompts {
		wg.Add(1)
		go func(prompt string) {
			defer wg.Done()
			e.generateImage(token, prompt)
		}(prompt)
	}

	// The busy flag clears once all work for the token resolves, or
	// silently when a newer token has superseded it. No timeout: a
	// request that never resolves leaves the indicator set.
	go func() {
		wg.Wait()
		e.mu.Lock()
		if e.busyToken == token {
			e.busy = false
			e.mu.Unlock()
			e.emit(Event{Kind: EventBusyChanged})
			return
		}
		e.mu.Unlock()
	}()
}

// generateImage requests one illustration, retrying up to three
// attempts with linearly increasing backoff. Failure after retries is a
// normal outcome: the slot is simply omitted.
func (e *Engine) generateImage(token, prompt string) {
	var url string
	var err error
	for attempt := 1; attempt <= imageAttempts; attempt++ {
		url, err = e.illustrator.Illustrate(context.Background(), prompt)
		if err == nil {
			break
		}
		if attempt < imageAttempts {
			time.Sleep(time.Duration(attempt) * e.retryDelay)
		}
	}
	if err != nil {
		log.Printf("pipeline: image slot failed after %d attempts: %v", imageAttempts, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.CurrentSegmentID() != token {
		log.Printf("pipeline: discarding stale image for segment %s", token)
		return
	}
	if e.carouselToken != token {
		// First image for this segment: replace the whole carousel so
		// two segments' images never mix. Until then the previous
		// segment's images stay up rather than clearing to blank.
		e.state.ImageURLs = []string{url}
		e.carouselToken = token
	} else if !slices.Contains(e.state.ImageURLs, url) {
		e.state.ImageURLs = append(e.state.ImageURLs, url)
	}
	e.persistLocked()
	e.emit(Event{Kind: EventStateChanged})
}

// generateNarration requests the audio track and forwards it to the
// playback manager if the segment is still current. Audio failure never
// blocks or fails the turn.
func (e *Engine) generateNarration(token, narrative string) {
	pcm, err := e.speaker.Synthesize(context.Background(), narrative)
	if err != nil {
		log.Printf("pipeline: narration failed: %v", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.CurrentSegmentID() != token {
		log.Printf("pipeline: discarding stale narration for segment %s", token)
		return
	}
	if err := e.audio.Play(pcm); err != nil {
		log.Printf("pipeline: starting narration: %v", err)
	}
}
