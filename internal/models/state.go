package models

import (
	"fmt"
	"time"
)

// AppliedDeltas reports the raw deltas an update carried, so the
// surface can react (e.g. flash a damage indicator when Health < 0).
type AppliedDeltas struct {
	Health int
	Wealth int
	XP     int
}

// ApplyStatUpdates adds the signed deltas to the player stats, clamping
// Health to [0,100] and Wealth to >=0. XP is additive with no downward
// clamp. A nil update is a no-op.
func (s *SessionState) ApplyStatUpdates(u *StatUpdates) AppliedDeltas {
	if u == nil {
		return AppliedDeltas{}
	}
	s.Stats.Health = clamp(s.Stats.Health+u.Health, 0, MaxHealth)
	s.Stats.Wealth = max(s.Stats.Wealth+u.Wealth, 0)
	s.Stats.XP += u.XP
	return AppliedDeltas{Health: u.Health, Wealth: u.Wealth, XP: u.XP}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MergeLoot folds found items into the inventory. Entries are unique by
// name: an already-held item has its quantity incremented instead of
// being duplicated. Returns display strings for the acquired items.
func (s *SessionState) MergeLoot(loot []Item) []string {
	var acquired []string
	for _, it := range loot {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		merged := false
		for i := range s.Inventory {
			if s.Inventory[i].Name == it.Name {
				s.Inventory[i].Quantity += qty
				merged = true
				break
			}
		}
		if !merged {
			if it.ID == "" {
				it.ID = NewID()
			}
			it.Quantity = qty
			s.Inventory = append(s.Inventory, it)
		}
		if qty > 1 {
			acquired = append(acquired, fmt.Sprintf("%s x%d", it.Name, qty))
		} else {
			acquired = append(acquired, it.Name)
		}
	}
	return acquired
}

// CommitSegment appends seg to the history and makes it current,
// preserving the invariant that CurrentSegment equals the last history
// element.
func (s *SessionState) CommitSegment(seg *StorySegment) {
	s.History = append(s.History, *seg)
	s.CurrentSegment = &s.History[len(s.History)-1]
}

// RecentHistory returns up to the last n history segments, for bounded
// generation context.
func (s *SessionState) RecentHistory(n int) []StorySegment {
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// AppendLog appends a display entry of the given kind and returns it.
func (s *SessionState) AppendLog(kind LogKind, content string, opts ...Option) LogEntry {
	e := LogEntry{
		ID:        NewID(),
		Kind:      kind,
		Content:   content,
		Options:   opts,
		Timestamp: time.Now(),
	}
	s.Log = append(s.Log, e)
	return e
}

// ClearLog drops the visible log. History is untouched. The empty
// slice (not nil) keeps the persisted form a sequence.
func (s *SessionState) ClearLog() {
	s.Log = []LogEntry{}
}

// Active reports whether a session is underway (at least one committed
// segment).
func (s *SessionState) Active() bool {
	return s.CurrentSegment != nil
}

// CurrentSegmentID returns the id of the current segment, or "" before
// the first turn. Background results compare their staleness token
// against this value at apply time.
func (s *SessionState) CurrentSegmentID() string {
	if s.CurrentSegment == nil {
		return ""
	}
	return s.CurrentSegment.ID
}
