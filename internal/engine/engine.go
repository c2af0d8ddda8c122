// Package engine is the single authority for advancing a session by
// one turn: it interprets raw player input, drives the narrative
// collaborator, applies stat and inventory changes, and hands committed
// segments to the background asset pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonchampaigne/ScarSignal/internal/generate"
	"github.com/jonchampaigne/ScarSignal/internal/models"
)

// Phase is the turn state machine: IDLE and WRITING alternate per
// turn, and Terminal is entered when health reaches zero and left only
// by an explicit reset.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWriting
	PhaseTerminal
)

var (
	// ErrBusy is returned when a turn is submitted while the previous
	// narrative request is still in flight. The surface also disables
	// input during WRITING; this is the backstop.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrTerminal is returned for turn submissions after the signal
	// has been lost; only a reset leaves that state.
	ErrTerminal = errors.New("signal lost; reset to continue")
)

// Store is the persistence dependency, written through on every
// committed state change.
type Store interface {
	Save(*models.SessionState) error
	Wipe() error
}

// Player is the narration playback dependency.
type Player interface {
	Play(pcm []byte) error
	Stop()
	SetVolume(v float64)
	SetMuted(b bool)
}

// Directive tells the surface what to do with input the engine does
// not consume itself.
type Directive int

const (
	DirectiveNone Directive = iota
	DirectiveExit
	// DirectiveConfirmReset asks the surface to confirm before calling
	// Reset.
	DirectiveConfirmReset
)

// EventKind classifies engine notifications to the surface.
type EventKind int

const (
	// EventStateChanged fires on any observable session mutation.
	EventStateChanged EventKind = iota
	// EventDamage fires when a turn applied a negative health delta.
	EventDamage
	// EventBusyChanged fires when background asset work starts or
	// drains.
	EventBusyChanged
)

// Event is one engine notification.
type Event struct {
	Kind        EventKind
	HealthDelta int
}

// Engine coordinates one session. All state mutation happens under mu,
// from turn processing and from asset pipeline completion callbacks.
type Engine struct {
	mu    sync.Mutex
	state *models.SessionState
	phase Phase

	store       Store
	narrator    generate.Narrator
	illustrator generate.Illustrator
	speaker     generate.Speaker
	audio       Player

	// carouselToken is the segment id the displayed images belong to.
	carouselToken string
	// busyToken tracks the segment whose background work is counted by
	// the busy indicator.
	busyToken string
	busy      bool

	retryDelay time.Duration
	events     chan Event
}

// New wires an engine around an existing session state (restored or
// fresh). A fresh session gets its boot banner appended.
func New(state *models.SessionState, store Store, narrator generate.Narrator, illustrator generate.Illustrator, speaker generate.Speaker, audio Player) *Engine {
	e := &Engine{
		state:       state,
		store:       store,
		narrator:    narrator,
		illustrator: illustrator,
		speaker:     speaker,
		audio:       audio,
		retryDelay:  time.Second,
		events:      make(chan Event, 64),
	}
	if state.Stats.Health <= 0 && state.Active() {
		e.phase = PhaseTerminal
	}
	if len(state.Log) == 0 {
		e.bootLogLocked()
	}
	e.carouselToken = state.CurrentSegmentID()
	e.audio.SetVolume(state.Volume)
	e.audio.SetMuted(state.Muted)
	return e
}

func (e *Engine) bootLogLocked() {
	e.state.AppendLog(models.LogSystem, "SCAR SIGNAL // salvage terminal v0.9")
	e.state.AppendLog(models.LogInfo, fmt.Sprintf("host %s linked", e.state.HostID))
	e.state.AppendLog(models.LogInfo, "Type 'start' to chase the signal.")
}

// Events returns the notification channel the surface drains.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		log.Printf("engine: dropping event %d (surface not draining)", ev.Kind)
	}
}

// Phase returns the current turn phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Busy reports whether background asset work is outstanding for the
// current segment. Best effort: a request that never resolves leaves
// this set.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Snapshot returns a render-safe copy of the session state.
func (e *Engine) Snapshot() models.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := *e.state
	s.Log = slices.Clone(e.state.Log)
	s.History = slices.Clone(e.state.History)
	s.ImageURLs = slices.Clone(e.state.ImageURLs)
	s.Inventory = slices.Clone(e.state.Inventory)
	if e.state.CurrentSegment != nil {
		seg := *e.state.CurrentSegment
		s.CurrentSegment = &seg
	}
	return s
}

// persistLocked mirrors the state to the store. Persistence is best
// effort: failures are logged and the session continues in memory.
func (e *Engine) persistLocked() {
	if err := e.store.Save(e.state); err != nil {
		log.Printf("engine: persisting session: %v", err)
	}
}

// startAction is the implicit first action of a session.
const startAction = "Boot the terminal and take stock of where you are."

// SubmitInput normalizes raw input and matches it against the command
// grammar, in priority order: clear, exit, reset, start, numeric option
// selection, free-form action. Accepted actions advance the turn.
func (e *Engine) SubmitInput(ctx context.Context, raw string) (Directive, error) {
	trimmed := strings.TrimSpace(raw)
	norm := strings.ToLower(trimmed)

	switch norm {
	case "":
		return DirectiveNone, nil
	case "clear", "cls":
		e.mu.Lock()
		e.state.ClearLog()
		e.state.AppendLog(models.LogInfo, "Display buffer flushed.")
		e.persistLocked()
		e.mu.Unlock()
		e.emit(Event{Kind: EventStateChanged})
		return DirectiveNone, nil
	case "exit":
		return DirectiveExit, nil
	case "reset", "restart", "wipe":
		return DirectiveConfirmReset, nil
	case "start", "init":
		e.mu.Lock()
		if e.state.Active() {
			e.state.AppendLog(models.LogError, "A transmission is already active. 'reset' to wipe it first.")
			e.persistLocked()
			e.mu.Unlock()
			e.emit(Event{Kind: EventStateChanged})
			return DirectiveNone, nil
		}
		e.mu.Unlock()
		return DirectiveNone, e.AdvanceTurn(ctx, startAction)
	}

	// Bare positive integer selects the Nth option of the current
	// segment; out-of-range numbers fall through to free text.
	if n, err := strconv.Atoi(norm); err == nil && n > 0 {
		e.mu.Lock()
		var action string
		if seg := e.state.CurrentSegment; seg != nil && n <= len(seg.Options) {
			action = seg.Options[n-1].Action
		}
		e.mu.Unlock()
		if action != "" {
			return DirectiveNone, e.AdvanceTurn(ctx, action)
		}
	}

	return DirectiveNone, e.AdvanceTurn(ctx, trimmed)
}

// AdvanceTurn runs one full turn against the narrative collaborator.
// The turn is complete once text generation succeeds; images and audio
// are detached background work guarded by the segment's staleness
// token.
func (e *Engine) AdvanceTurn(ctx context.Context, action string) error {
	e.mu.Lock()
	switch e.phase {
	case PhaseWriting:
		e.mu.Unlock()
		return ErrBusy
	case PhaseTerminal:
		e.mu.Unlock()
		return ErrTerminal
	}
	e.phase = PhaseWriting
	e.state.AppendLog(models.LogCommand, "> "+action)
	req := generate.TurnRequest{
		Recent:    slices.Clone(e.state.RecentHistory(2)),
		Stats:     e.state.Stats,
		Inventory: slices.Clone(e.state.Inventory),
		Action:    action,
	}
	e.mu.Unlock()
	e.emit(Event{Kind: EventStateChanged})

	// A new segment supersedes the old one's narration.
	e.audio.Stop()

	seg, err := e.narrator.NextSegment(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		// No partial commit: history and the current segment are
		// untouched.
		e.state.AppendLog(models.LogError,
			fmt.Sprintf("TRANSMISSION ERROR: %v. The signal is still there; try again.", err))
		e.phase = PhaseIdle
		e.persistLocked()
		e.emit(Event{Kind: EventStateChanged})
		return nil
	}

	// Turn boundary: fresh screen.
	e.state.ClearLog()
	e.state.AppendLog(models.LogSystem, "── signal reacquired ──")
	e.state.CommitSegment(seg)
	deltas := e.state.ApplyStatUpdates(seg.StatUpdates)
	if len(seg.Loot) > 0 {
		acquired := e.state.MergeLoot(seg.Loot)
		e.state.AppendLog(models.LogSuccess, "Recovered: "+strings.Join(acquired, ", "))
	}

	if e.state.Stats.Health <= 0 {
		e.state.AppendLog(models.LogNarrative, seg.Narrative)
		e.state.AppendLog(models.LogError, "VITALS FLATLINE // SIGNAL LOST")
		e.state.AppendLog(models.LogInfo, "Type 'reset' to open a new channel.")
		e.phase = PhaseTerminal
		e.persistLocked()
		if deltas.Health < 0 {
			e.emit(Event{Kind: EventDamage, HealthDelta: deltas.Health})
		}
		e.emit(Event{Kind: EventStateChanged})
		return nil
	}

	e.state.AppendLog(models.LogNarrative, seg.Narrative)
	e.state.AppendLog(models.LogInfo, "Choose a number or type an action.", seg.Options...)
	e.phase = PhaseIdle
	e.persistLocked()

	// Detached asset work for the committed segment, guarded by its id.
	e.kickAssetsLocked(*seg)

	if deltas.Health < 0 {
		e.emit(Event{Kind: EventDamage, HealthDelta: deltas.Health})
	}
	e.emit(Event{Kind: EventStateChanged})
	return nil
}

// Reset destroys the session: in-memory state returns to defaults and
// the persisted snapshot is wiped. The surface confirms before calling
// this.
func (e *Engine) Reset() {
	e.audio.Stop()
	e.mu.Lock()
	if err := e.store.Wipe(); err != nil {
		log.Printf("engine: wiping session: %v", err)
	}
	e.state = models.NewSessionState()
	e.phase = PhaseIdle
	e.carouselToken = ""
	e.busyToken = ""
	e.busy = false
	e.bootLogLocked()
	e.persistLocked()
	e.mu.Unlock()
	e.emit(Event{Kind: EventStateChanged})
}

// SetVolume updates the playback preference and the live output.
func (e *Engine) SetVolume(v float64) {
	v = min(max(v, 0), 1)
	e.mu.Lock()
	e.state.Volume = v
	e.persistLocked()
	e.mu.Unlock()
	e.audio.SetVolume(v)
	e.emit(Event{Kind: EventStateChanged})
}

// SetMuted updates the mute preference and the live output.
func (e *Engine) SetMuted(b bool) {
	e.mu.Lock()
	e.state.Muted = b
	e.persistLocked()
	e.mu.Unlock()
	e.audio.SetMuted(b)
	e.emit(Event{Kind: EventStateChanged})
}
