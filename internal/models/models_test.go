package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewSessionStateDefaults(t *testing.T) {
	s := NewSessionState()

	assert.Equal(t, 100, s.Stats.Health)
	assert.Equal(t, 50, s.Stats.Wealth)
	assert.Equal(t, 0, s.Stats.XP)
	assert.NotEmpty(t, s.HostID)
	assert.Equal(t, 0.5, s.Volume)
	assert.False(t, s.Muted)
	assert.Empty(t, s.Inventory)
	assert.Nil(t, s.CurrentSegment)
}

func TestApplyStatUpdatesClamping(t *testing.T) {
	tests := []struct {
		name       string
		start      PlayerStats
		update     StatUpdates
		wantHealth int
		wantWealth int
		wantXP     int
	}{
		{"plain deltas", PlayerStats{Health: 100, Wealth: 50, XP: 0}, StatUpdates{Health: -10, Wealth: 0, XP: 15}, 90, 50, 15},
		{"massive damage clamps to zero", PlayerStats{Health: 100}, StatUpdates{Health: -150}, 0, 0, 0},
		{"healing clamps to hundred", PlayerStats{Health: 95}, StatUpdates{Health: 20}, 100, 0, 0},
		{"wealth floors at zero", PlayerStats{Wealth: 10}, StatUpdates{Wealth: -25}, 0, 0, 0},
		{"xp keeps accumulating", PlayerStats{XP: 40}, StatUpdates{XP: 200}, 0, 0, 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SessionState{Stats: tt.start}
			s.ApplyStatUpdates(&tt.update)
			assert.Equal(t, tt.wantHealth, s.Stats.Health, "health")
			assert.Equal(t, tt.wantWealth, s.Stats.Wealth, "wealth")
			assert.Equal(t, tt.wantXP, s.Stats.XP, "xp")
		})
	}
}

func TestApplyStatUpdatesNil(t *testing.T) {
	s := &SessionState{Stats: PlayerStats{Health: 70, Wealth: 30, XP: 5}}
	deltas := s.ApplyStatUpdates(nil)
	assert.Equal(t, AppliedDeltas{}, deltas)
	assert.Equal(t, PlayerStats{Health: 70, Wealth: 30, XP: 5}, s.Stats)
}

// Clamping holds for arbitrary delta magnitude and sign in both
// directions.
func TestStatClampingProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := &SessionState{Stats: PlayerStats{
			Health: rapid.IntRange(0, 100).Draw(rt, "health"),
			Wealth: rapid.IntRange(0, 10_000).Draw(rt, "wealth"),
			XP:     rapid.IntRange(0, 10_000).Draw(rt, "xp"),
		}}
		u := StatUpdates{
			Health: rapid.IntRange(-1_000, 1_000).Draw(rt, "dh"),
			Wealth: rapid.IntRange(-1_000, 1_000).Draw(rt, "dw"),
			XP:     rapid.IntRange(0, 1_000).Draw(rt, "dx"),
		}
		s.ApplyStatUpdates(&u)

		if s.Stats.Health < 0 || s.Stats.Health > 100 {
			rt.Fatalf("health %d out of [0,100]", s.Stats.Health)
		}
		if s.Stats.Wealth < 0 {
			rt.Fatalf("wealth %d negative", s.Stats.Wealth)
		}
	})
}

func TestMergeLootDeduplicatesByName(t *testing.T) {
	s := NewSessionState()

	s.MergeLoot([]Item{{Name: "Prybar", Description: "Bent but solid.", Kind: ItemTool}})
	s.MergeLoot([]Item{{Name: "Prybar", Description: "Another one.", Kind: ItemTool}})

	require.Len(t, s.Inventory, 1)
	assert.Equal(t, "Prybar", s.Inventory[0].Name)
	assert.Equal(t, 2, s.Inventory[0].Quantity)
}

func TestMergeLootQuantities(t *testing.T) {
	s := NewSessionState()

	acquired := s.MergeLoot([]Item{
		{Name: "Flare", Kind: ItemConsumable, Quantity: 3},
		{Name: "Map Fragment", Kind: ItemIntel}, // zero quantity normalizes to 1
	})

	assert.Equal(t, []string{"Flare x3", "Map Fragment"}, acquired)
	require.Len(t, s.Inventory, 2)
	assert.Equal(t, 3, s.Inventory[0].Quantity)
	assert.Equal(t, 1, s.Inventory[1].Quantity)
	assert.NotEmpty(t, s.Inventory[0].ID)
}

// For any sequence of committed segments the current segment equals the
// last history element.
func TestCommitSegmentInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewSessionState()
		n := rapid.IntRange(1, 20).Draw(rt, "turns")
		for i := 0; i < n; i++ {
			seg := &StorySegment{ID: NewID(), Narrative: rapid.StringN(1, 40, -1).Draw(rt, "narrative")}
			s.CommitSegment(seg)

			if s.CurrentSegment == nil {
				rt.Fatal("current segment missing after commit")
			}
			last := s.History[len(s.History)-1]
			if s.CurrentSegment.ID != last.ID {
				rt.Fatalf("current %q != last history %q", s.CurrentSegment.ID, last.ID)
			}
		}
		if len(s.History) != n {
			rt.Fatalf("history length %d, want %d", len(s.History), n)
		}
	})
}

func TestRecentHistoryBounds(t *testing.T) {
	s := NewSessionState()
	assert.Empty(t, s.RecentHistory(2))

	for i := 0; i < 5; i++ {
		s.CommitSegment(&StorySegment{ID: NewID()})
	}
	recent := s.RecentHistory(2)
	require.Len(t, recent, 2)
	assert.Equal(t, s.History[3].ID, recent[0].ID)
	assert.Equal(t, s.History[4].ID, recent[1].ID)
}

func TestAppendAndClearLog(t *testing.T) {
	s := NewSessionState()
	e := s.AppendLog(LogNarrative, "The wind drops.", Option{Label: "Wait", Action: "wait"})

	require.Len(t, s.Log, 1)
	assert.Equal(t, LogNarrative, e.Kind)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	require.Len(t, e.Options, 1)

	s.ClearLog()
	assert.Empty(t, s.Log)
}
