package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jonchampaigne/ScarSignal/internal/models"
)

// AppendCrashEntry patches a synthetic error log entry directly into
// the persisted snapshot, bypassing the in-memory session state (whose
// integrity is suspect during a fault). The next Load then surfaces the
// crash context. A missing or malformed snapshot is tolerated: the
// entry is written into a minimal fresh record instead.
func (st *Store) AppendCrashEntry(msg string) error {
	raw := map[string]json.RawMessage{}
	if data, err := os.ReadFile(st.path); err == nil {
		// Best effort: a snapshot we cannot parse is replaced by the
		// minimal record rather than aborting the capture.
		if err := json.Unmarshal(data, &raw); err != nil {
			raw = map[string]json.RawMessage{}
		}
	}

	var entries []json.RawMessage
	if logRaw, ok := raw["log"]; ok && isArray(logRaw) {
		if err := json.Unmarshal(logRaw, &entries); err != nil {
			entries = nil
		}
	}

	crash := models.LogEntry{
		ID:        models.NewID(),
		Kind:      models.LogError,
		Content:   fmt.Sprintf("SESSION FAULT CAPTURED: %s", msg),
		Timestamp: time.Now(),
	}
	crashRaw, err := json.Marshal(crash)
	if err != nil {
		return fmt.Errorf("encoding crash entry: %w", err)
	}
	entries = append(entries, crashRaw)

	logRaw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding crash log: %w", err)
	}
	raw["log"] = logRaw
	if _, ok := raw["history"]; !ok {
		raw["history"] = json.RawMessage("[]")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding patched snapshot: %w", err)
	}
	if err := os.WriteFile(st.path, data, 0o644); err != nil {
		return fmt.Errorf("writing patched snapshot: %w", err)
	}
	return nil
}
