// Package events implements CRUD, authorization, and age-based expiry for
// game-night events, persisted as one JSON file per event.
package events

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/silverflax/bgg-gg/internal/models"
)

// DefaultMaxAge is how long an event lives before the expiry sweep removes
// it.
const DefaultMaxAge = 30 * 24 * time.Hour

// DefaultEventName is used when a creator does not name the event.
const DefaultEventName = "Game Night"

// idAlphabet and idLength shape the random event id. The id space is small
// enough that Create re-rolls on a file collision.
const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 8
)

// Store persists events under a directory, one JSON file per event id.
//
// Mutations are read-modify-write against a single file with no optimistic
// concurrency check: concurrent mutations to the same event race and the
// later write wins. Acceptable for low-traffic, ephemeral events.
type Store struct {
	dir    string
	maxAge time.Duration
}

// SweepResult counts what an expiry sweep removed.
type SweepResult struct {
	Expired int
	Corrupt int
}

// NewStore creates the events directory if needed. maxAge <= 0 falls back to
// DefaultMaxAge.
func NewStore(dir string, maxAge time.Duration) (*Store, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, maxAge: maxAge}, nil
}

// Create makes a new event with a fresh random id and creator token. The
// returned event is the only read that carries the token. A missing createdBy
// fails soft.
func (s *Store) Create(createdBy, name string, filters *models.ScenarioFilters) (models.Event, bool) {
	if createdBy == "" {
		return models.Event{}, false
	}
	if name == "" {
		name = DefaultEventName
	}

	id, ok := s.newID()
	if !ok {
		return models.Event{}, false
	}

	ev := models.Event{
		ID:              id,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
		Name:            name,
		ScenarioFilters: filters,
		Games:           []models.GameRef{},
		Votes:           map[string][]string{},
		CreatorToken:    uuid.NewString(),
	}
	if !s.write(ev) {
		return models.Event{}, false
	}
	return ev, true
}

// Get returns the event with the token stripped. An unparsable file is
// deleted and reads as absent.
func (s *Store) Get(id string) (models.Event, bool) {
	ev, ok := s.read(id)
	if !ok {
		return models.Event{}, false
	}
	return ev.Public(), true
}

// VerifyToken reports whether token matches the event's creator token.
func (s *Store) VerifyToken(id, token string) bool {
	ev, ok := s.read(id)
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ev.CreatorToken), []byte(token)) == 1
}

// Update shallow-merges the patch into the event. Used for rename.
func (s *Store) Update(id string, patch models.EventPatch) (models.Event, bool) {
	ev, ok := s.read(id)
	if !ok {
		return models.Event{}, false
	}
	if patch.Name != nil {
		ev.Name = *patch.Name
	}
	if patch.ScenarioFilters != nil {
		ev.ScenarioFilters = patch.ScenarioFilters
	}
	if !s.write(ev) {
		return models.Event{}, false
	}
	return ev.Public(), true
}

// Delete removes the event. Returns false when it did not exist.
func (s *Store) Delete(id string) bool {
	return os.Remove(s.path(id)) == nil
}

// ListByUser scans every event and returns those created by username, newest
// first. Corrupted files are skipped silently.
func (s *Store) ListByUser(username string) []models.Event {
	names, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	out := []models.Event{}
	for _, d := range names {
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, d.Name()))
		if err != nil {
			continue
		}
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		if ev.CreatedBy == username {
			out = append(out, ev.Public())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// AddGame appends a denormalized game snapshot to the event. Adding a game
// that is already present is a no-op returning the event unchanged.
func (s *Store) AddGame(id string, game models.GameRef) (models.Event, bool) {
	ev, ok := s.read(id)
	if !ok {
		return models.Event{}, false
	}
	if ev.HasGame(game.ID) {
		return ev.Public(), true
	}

	ev.Games = append(ev.Games, game)
	if !s.write(ev) {
		return models.Event{}, false
	}
	return ev.Public(), true
}

// RemoveGame removes the game from the candidate list and prunes its id from
// every ballot, preserving each ballot's remaining order. Ballots are never
// deleted, only pruned. Removing a game that is not present is a no-op.
func (s *Store) RemoveGame(id, gameID string) (models.Event, bool) {
	ev, ok := s.read(id)
	if !ok {
		return models.Event{}, false
	}
	if !ev.HasGame(gameID) {
		return ev.Public(), true
	}

	games := ev.Games[:0]
	for _, g := range ev.Games {
		if g.ID != gameID {
			games = append(games, g)
		}
	}
	ev.Games = games

	for fp, ranking := range ev.Votes {
		pruned := make([]string, 0, len(ranking))
		for _, gid := range ranking {
			if gid != gameID {
				pruned = append(pruned, gid)
			}
		}
		ev.Votes[fp] = pruned
	}

	if !s.write(ev) {
		return models.Event{}, false
	}
	return ev.Public(), true
}

// Vote sets the ballot for a fingerprint, overwriting any prior one. Ranked
// ids that are not on the candidate list are silently dropped; the relative
// order of the rest is preserved. Voting requires no token.
func (s *Store) Vote(id, fingerprint string, rankedIDs []string) (models.Event, bool) {
	if fingerprint == "" {
		return models.Event{}, false
	}
	ev, ok := s.read(id)
	if !ok {
		return models.Event{}, false
	}

	filtered := make([]string, 0, len(rankedIDs))
	for _, gid := range rankedIDs {
		if ev.HasGame(gid) {
			filtered = append(filtered, gid)
		}
	}

	if ev.Votes == nil {
		ev.Votes = map[string][]string{}
	}
	ev.Votes[fingerprint] = filtered

	if !s.write(ev) {
		return models.Event{}, false
	}
	return ev.Public(), true
}

// Sweep deletes events older than the max age and events whose file fails to
// parse.
func (s *Store) Sweep() SweepResult {
	var res SweepResult

	names, err := os.ReadDir(s.dir)
	if err != nil {
		return res
	}

	cutoff := time.Now().Add(-s.maxAge)
	for _, d := range names {
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, d.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			_ = os.Remove(path)
			res.Corrupt++
			continue
		}
		if ev.CreatedAt.Before(cutoff) {
			_ = os.Remove(path)
			res.Expired++
		}
	}
	return res
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// read loads the full event, creator token included. Callers strip the token
// before anything leaves the store.
func (s *Store) read(id string) (models.Event, bool) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		return models.Event{}, false
	}
	var ev models.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		_ = os.Remove(s.path(id))
		return models.Event{}, false
	}
	return ev, true
}

// write persists via temp file + atomic rename, same discipline as the cache.
func (s *Store) write(ev models.Event) bool {
	b, err := json.Marshal(ev)
	if err != nil {
		return false
	}

	final := s.path(ev.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		_ = os.Remove(tmp)
		return false
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return false
	}
	return true
}

// newID draws random ids until one does not collide with an existing file.
func (s *Store) newID() (string, bool) {
	for attempt := 0; attempt < 10; attempt++ {
		buf := make([]byte, idLength)
		if _, err := rand.Read(buf); err != nil {
			return "", false
		}
		for i, b := range buf {
			buf[i] = idAlphabet[int(b)%len(idAlphabet)]
		}
		id := string(buf)
		if _, err := os.Stat(s.path(id)); os.IsNotExist(err) {
			return id, true
		}
	}
	return "", false
}
