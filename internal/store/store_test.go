package store_test

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jonchampaigne/ScarSignal/internal/models"
	"github.com/jonchampaigne/ScarSignal/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return st
}

func sampleState() *models.SessionState {
	s := models.NewSessionState()
	s.AppendLog(models.LogSystem, "boot")
	s.AppendLog(models.LogNarrative, "The tower hums.")
	seg := &models.StorySegment{
		ID:            models.NewID(),
		Narrative:     "The tower hums.",
		VisualPrompts: []string{"a rusted tower", "a dead road", "static on glass"},
		Options:       []models.Option{{Label: "Climb", Action: "climb the tower"}},
		StatUpdates:   &models.StatUpdates{Health: -5, XP: 10},
	}
	s.CommitSegment(seg)
	s.ApplyStatUpdates(seg.StatUpdates)
	s.MergeLoot([]models.Item{{Name: "Prybar", Kind: models.ItemTool}})
	s.ImageURLs = []string{"data:image/png;base64,AAAA"}
	return s
}

func TestLoadAbsent(t *testing.T) {
	st := newStore(t)
	_, err := st.Load()
	assert.True(t, errors.Is(err, store.ErrNoSession))
}

func TestSaveLoadFreshSession(t *testing.T) {
	st := newStore(t)
	// A session persisted before its first turn must still load: empty
	// log and history serialize as sequences, not null.
	require.NoError(t, st.Save(models.NewSessionState()))

	got, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, got.History)
	assert.Nil(t, got.CurrentSegment)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newStore(t)
	s := sampleState()
	require.NoError(t, st.Save(s))

	got, err := st.Load()
	require.NoError(t, err)

	assert.Equal(t, s.Stats, got.Stats)
	assert.Equal(t, s.HostID, got.HostID)
	assert.Equal(t, s.Volume, got.Volume)
	assert.Equal(t, s.Muted, got.Muted)
	assert.Equal(t, s.ImageURLs, got.ImageURLs)
	assert.Equal(t, s.Inventory, got.Inventory)
	require.Len(t, got.History, len(s.History))
	require.NotNil(t, got.CurrentSegment)
	assert.Equal(t, s.CurrentSegment.ID, got.CurrentSegment.ID)

	// Every restored entry is stamped so replay animation is skipped.
	require.Len(t, got.Log, len(s.Log))
	for i, entry := range got.Log {
		assert.True(t, entry.Restored, "entry %d not marked restored", i)
		assert.Equal(t, s.Log[i].Content, entry.Content)
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	st := newStore(t)
	require.NoError(t, os.WriteFile(st.Path(), []byte("{not json"), 0o644))

	_, err := st.Load()
	assert.True(t, errors.Is(err, store.ErrNoSession), "corruption reads as no session, got %v", err)
}

func TestLoadRejectsNonSequenceFields(t *testing.T) {
	st := newStore(t)
	for _, snapshot := range []string{
		`{"log": "nope", "history": []}`,
		`{"log": [], "history": {"a": 1}}`,
		`{"log": null, "history": []}`,
		`{"history": []}`,
	} {
		require.NoError(t, os.WriteFile(st.Path(), []byte(snapshot), 0o644))
		_, err := st.Load()
		assert.True(t, errors.Is(err, store.ErrNoSession), "snapshot %q should read as no session", snapshot)
	}
}

func TestLoadMigratesMissingFields(t *testing.T) {
	st := newStore(t)
	// An old snapshot with no inventory, hostId, volume or mute flag.
	old := `{"log": [], "history": [], "stats": {"health": 80, "wealth": 12, "xp": 3}}`
	require.NoError(t, os.WriteFile(st.Path(), []byte(old), 0o644))

	got, err := st.Load()
	require.NoError(t, err)

	assert.NotNil(t, got.Inventory)
	assert.Empty(t, got.Inventory)
	assert.NotEmpty(t, got.HostID)
	assert.Equal(t, models.DefaultVolume, got.Volume)
	assert.False(t, got.Muted)
	assert.Equal(t, models.PlayerStats{Health: 80, Wealth: 12, XP: 3}, got.Stats)
}

func TestLoadKeepsExplicitZeroVolume(t *testing.T) {
	st := newStore(t)
	old := `{"log": [], "history": [], "volume": 0, "isMuted": true}`
	require.NoError(t, os.WriteFile(st.Path(), []byte(old), 0o644))

	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Volume)
	assert.True(t, got.Muted)
}

func TestWipe(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Save(sampleState()))
	require.NoError(t, st.Wipe())

	_, err := st.Load()
	assert.True(t, errors.Is(err, store.ErrNoSession))

	// Wiping again is not an error.
	require.NoError(t, st.Wipe())
}

func TestAppendCrashEntryToExistingSnapshot(t *testing.T) {
	st := newStore(t)
	s := sampleState()
	require.NoError(t, st.Save(s))

	require.NoError(t, st.AppendCrashEntry("runtime error: render fault"))

	got, err := st.Load()
	require.NoError(t, err)
	require.Len(t, got.Log, len(s.Log)+1)

	last := got.Log[len(got.Log)-1]
	assert.Equal(t, models.LogError, last.Kind)
	assert.Contains(t, last.Content, "render fault")
	assert.True(t, last.Restored)

	// The rest of the record survives the patch untouched.
	assert.Equal(t, s.Stats, got.Stats)
	assert.Equal(t, s.CurrentSegment.ID, got.CurrentSegment.ID)
}

func TestAppendCrashEntryWithoutSnapshot(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.AppendCrashEntry("boom"))

	got, err := st.Load()
	require.NoError(t, err)
	require.Len(t, got.Log, 1)
	assert.Contains(t, got.Log[0].Content, "boom")
}

func TestAppendCrashEntryOverMalformedSnapshot(t *testing.T) {
	st := newStore(t)
	require.NoError(t, os.WriteFile(st.Path(), []byte("###"), 0o644))

	require.NoError(t, st.AppendCrashEntry("boom"))

	got, err := st.Load()
	require.NoError(t, err)
	require.Len(t, got.Log, 1)
	assert.Contains(t, got.Log[0].Content, "boom")
}

func generateItem(rt *rapid.T, label string) models.Item {
	kinds := []models.ItemKind{models.ItemConsumable, models.ItemTool, models.ItemIntel}
	return models.Item{
		ID:          models.NewID(),
		Name:        rapid.StringN(1, 30, -1).Draw(rt, label+"_name"),
		Description: rapid.StringN(0, 80, -1).Draw(rt, label+"_desc"),
		Kind:        kinds[rapid.IntRange(0, 2).Draw(rt, label+"_kind")],
		EffectValue: rapid.IntRange(0, 50).Draw(rt, label+"_effect"),
		Quantity:    rapid.IntRange(1, 9).Draw(rt, label+"_qty"),
	}
}

func generateState(rt *rapid.T) *models.SessionState {
	s := models.NewSessionState()
	s.Stats = models.PlayerStats{
		Health: rapid.IntRange(0, 100).Draw(rt, "health"),
		Wealth: rapid.IntRange(0, 9_999).Draw(rt, "wealth"),
		XP:     rapid.IntRange(0, 9_999).Draw(rt, "xp"),
	}
	s.Volume = float64(rapid.IntRange(0, 10).Draw(rt, "volume")) / 10
	s.Muted = rapid.Bool().Draw(rt, "muted")

	turns := rapid.IntRange(0, 4).Draw(rt, "turns")
	for i := 0; i < turns; i++ {
		s.CommitSegment(&models.StorySegment{
			ID:        models.NewID(),
			Narrative: rapid.StringN(1, 60, -1).Draw(rt, "narrative"),
		})
		s.AppendLog(models.LogNarrative, rapid.StringN(1, 60, -1).Draw(rt, "log"))
	}
	items := rapid.IntRange(0, 3).Draw(rt, "items")
	for i := 0; i < items; i++ {
		s.MergeLoot([]models.Item{generateItem(rt, "item")})
	}
	return s
}

// Serializing any session and loading it back yields an equivalent
// state, except log entries gain the restored stamp.
func TestPersistenceRoundTripProperty(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		s := generateState(rt)
		if err := st.Save(s); err != nil {
			rt.Fatalf("save: %v", err)
		}
		got, err := st.Load()
		if err != nil {
			rt.Fatalf("load: %v", err)
		}

		for i := range got.Log {
			if !got.Log[i].Restored {
				rt.Fatalf("log entry %d not marked restored", i)
			}
			got.Log[i].Restored = s.Log[i].Restored
		}

		// Timestamps round-trip through RFC3339; compare the rest via
		// a canonical re-encoding.
		want, _ := json.Marshal(normalize(s))
		have, _ := json.Marshal(normalize(got))
		if string(want) != string(have) {
			rt.Fatalf("round trip mismatch:\nwant %s\nhave %s", want, have)
		}
	})
}

func normalize(s *models.SessionState) *models.SessionState {
	c := *s
	c.Log = append([]models.LogEntry(nil), s.Log...)
	for i := range c.Log {
		c.Log[i].Timestamp = c.Log[i].Timestamp.Truncate(time.Second)
	}
	return &c
}
