// Package store persists the session snapshot across restarts and
// offers best-effort recovery from corruption. Persistence never fails
// the session: callers log and continue when Save reports an error.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jonchampaigne/ScarSignal/internal/models"
)

// ErrNoSession is returned by Load when no usable snapshot exists on
// disk. A corrupt snapshot is reported the same way: the session starts
// fresh rather than failing to boot.
var ErrNoSession = errors.New("no saved session")

const snapshotFile = "session.json"

// Store reads and writes the single session snapshot.
type Store struct {
	path string
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, snapshotFile)}, nil
}

// Path returns the snapshot location.
func (st *Store) Path() string {
	return st.path
}

// snapshotProbe checks the structural shape of a snapshot before the
// full decode: log and history must be JSON arrays, not merely present.
type snapshotProbe struct {
	Log     json.RawMessage `json:"log"`
	History json.RawMessage `json:"history"`
	Volume  *float64        `json:"volume"`
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// Load reads the persisted snapshot. Absence returns ErrNoSession.
// Structural invalidity (log/history not sequences) is logged and also
// returns ErrNoSession. Missing fields are migrated forward: inventory
// defaults to empty, hostId is freshly generated, volume/muted default
// to 0.5/false. Every restored log entry is stamped Restored so the
// surface skips replay animation.
func (st *Store) Load() (*models.SessionState, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session snapshot: %w", err)
	}

	var probe snapshotProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		log.Printf("store: discarding malformed snapshot: %v", err)
		return nil, ErrNoSession
	}
	if !isArray(probe.Log) || !isArray(probe.History) {
		log.Printf("store: snapshot log/history not sequences, starting fresh")
		return nil, ErrNoSession
	}

	var s models.SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("store: discarding undecodable snapshot: %v", err)
		return nil, ErrNoSession
	}

	migrate(&s, probe.Volume == nil)
	return &s, nil
}

// migrate fills fields absent from older snapshots.
func migrate(s *models.SessionState, volumeAbsent bool) {
	if s.Inventory == nil {
		s.Inventory = []models.Item{}
	}
	if s.HostID == "" {
		s.HostID = uuid.NewString()
	}
	if volumeAbsent {
		s.Volume = models.DefaultVolume
	}
	for i := range s.Log {
		s.Log[i].Restored = true
	}
}

// Save marshals the state and writes it atomically via a temp file and
// os.Rename. Errors are returned for the caller to log; they must never
// abort the session.
func (st *Store) Save(s *models.SessionState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(st.path), "session-*.json.tmp")
	if err != nil {
		return fmt.Errorf("writing session snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing session snapshot: %w", err)
	}
	if err = os.Rename(tmpName, st.path); err != nil {
		return fmt.Errorf("writing session snapshot: %w", err)
	}
	return nil
}

// Wipe removes the snapshot. A missing snapshot is not an error.
func (st *Store) Wipe() error {
	if err := os.Remove(st.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting session snapshot: %w", err)
	}
	return nil
}
