package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// LogKind classifies a LogEntry for rendering.
type LogKind string

const (
	LogSystem    LogKind = "system"
	LogNarrative LogKind = "narrative"
	LogCommand   LogKind = "command"
	LogInfo      LogKind = "info"
	LogError     LogKind = "error"
	LogSuccess   LogKind = "success"
)

// ItemKind classifies an inventory Item.
type ItemKind string

const (
	ItemConsumable ItemKind = "consumable"
	ItemTool       ItemKind = "tool"
	ItemIntel      ItemKind = "intel"
)

// Option is one selectable action offered by a segment.
type Option struct {
	Label  string `json:"label" yaml:"label"`
	Action string `json:"action" yaml:"action"`
}

// StatUpdates carries signed deltas produced by a turn.
type StatUpdates struct {
	Health int `json:"health" yaml:"health"`
	Wealth int `json:"wealth" yaml:"wealth"`
	XP     int `json:"xp" yaml:"xp"`
}

// Item is a single inventory entry. Name is the de-duplication key when
// merging loot into the inventory.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Kind        ItemKind `json:"kind" yaml:"kind"`
	EffectValue int      `json:"effectValue,omitempty" yaml:"effect_value,omitempty"`
	Quantity    int      `json:"quantity" yaml:"quantity"`
}

// StorySegment is one discrete unit of generated narrative plus its
// metadata. ID is unique per generation call and doubles as the
// staleness token for background asset work.
type StorySegment struct {
	ID            string       `json:"id" yaml:"id"`
	Narrative     string       `json:"narrative" yaml:"narrative"`
	VisualPrompts []string     `json:"visualPrompts" yaml:"visual_prompts"`
	Options       []Option     `json:"options" yaml:"options"`
	StatUpdates   *StatUpdates `json:"statUpdates,omitempty" yaml:"stat_updates,omitempty"`
	Loot          []Item       `json:"loot,omitempty" yaml:"loot,omitempty"`
}

// LogEntry is one line of the visible terminal history. Restored marks
// entries loaded from a prior session so the surface skips the replay
// animation.
type LogEntry struct {
	ID        string    `json:"id"`
	Kind      LogKind   `json:"kind"`
	Content   string    `json:"content"`
	Options   []Option  `json:"options,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Restored  bool      `json:"isRestored,omitempty"`
}

// PlayerStats tracks the three player meters. Health is clamped to
// [0,100] and Wealth to >=0 on every update; XP deltas are additive.
type PlayerStats struct {
	Health int `json:"health"`
	Wealth int `json:"wealth"`
	XP     int `json:"xp"`
}

// SessionState is the unit of persistence: everything a reload must
// bring back. It is mutated only by the turn engine and by asset
// pipeline completion callbacks.
type SessionState struct {
	Log            []LogEntry    `json:"log"`
	History        []StorySegment `json:"history"`
	CurrentSegment *StorySegment `json:"currentSegment,omitempty"`
	ImageURLs      []string      `json:"imageUrls"`
	Stats          PlayerStats   `json:"stats"`
	Inventory      []Item        `json:"inventory"`
	HostID         string        `json:"hostId"`
	Volume         float64       `json:"volume"`
	Muted          bool          `json:"isMuted"`
}

const (
	DefaultHealth = 100
	DefaultWealth = 50
	DefaultVolume = 0.5
	MaxHealth     = 100
)

// NewSessionState returns a fresh session with default stats and a
// freshly generated host id.
func NewSessionState() *SessionState {
	// Log and History must marshal as sequences even when empty; the
	// loader treats a non-sequence there as a corrupt snapshot.
	return &SessionState{
		Log:       []LogEntry{},
		History:   []StorySegment{},
		Stats:     PlayerStats{Health: DefaultHealth, Wealth: DefaultWealth},
		Inventory: []Item{},
		HostID:    uuid.NewString(),
		Volume:    DefaultVolume,
	}
}

// NewID returns a fresh ULID string for segments, items and log
// entries.
func NewID() string {
	return ulid.Make().String()
}
