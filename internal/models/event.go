package models

import "time"

// GameRef is a denormalized snapshot of a collection game, copied into an
// event at add-time. It is not a live reference: later collection syncs do
// not touch it.
type GameRef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	PlayingTime int     `json:"playingTime,omitempty"`
	MinPlayers  int     `json:"minPlayers,omitempty"`
	MaxPlayers  int     `json:"maxPlayers,omitempty"`
}

// ScenarioFilters narrows the candidate games suggested for an event.
type ScenarioFilters struct {
	PlayerCount    int     `json:"playerCount,omitempty"`
	MaxPlayingTime int     `json:"maxPlayingTime,omitempty"`
	MaxWeight      float64 `json:"maxWeight,omitempty"`
}

// Event is a game night: a curated list of candidate games plus one ranked
// ballot per voter fingerprint. Ballot values only ever reference ids present
// in Games; removing a game prunes it from every ballot.
//
// CreatorToken is the mutation credential. It is embedded once in the
// creation response and stripped from every other read.
type Event struct {
	ID              string              `json:"id"`
	CreatedBy       string              `json:"createdBy"`
	CreatedAt       time.Time           `json:"createdAt"`
	Name            string              `json:"name"`
	ScenarioFilters *ScenarioFilters    `json:"scenarioFilters,omitempty"`
	Games           []GameRef           `json:"games"`
	Votes           map[string][]string `json:"votes"`
	CreatorToken    string              `json:"creatorToken,omitempty"`
}

// Public returns a copy safe to hand to any caller: the creator token is
// stripped.
func (e Event) Public() Event {
	e.CreatorToken = ""
	return e
}

// HasGame reports whether the game id is on the event's candidate list.
func (e Event) HasGame(gameID string) bool {
	for _, g := range e.Games {
		if g.ID == gameID {
			return true
		}
	}
	return false
}

// EventPatch carries the fields an event update may change. Nil fields are
// left untouched (shallow merge).
type EventPatch struct {
	Name            *string          `json:"name,omitempty"`
	ScenarioFilters *ScenarioFilters `json:"scenarioFilters,omitempty"`
}

// CreateEventRequest is the POST /events payload.
type CreateEventRequest struct {
	CreatedBy       string           `json:"createdBy"`
	Name            string           `json:"name,omitempty"`
	ScenarioFilters *ScenarioFilters `json:"scenarioFilters,omitempty"`
}

// VoteRequest is the POST /events/:id/vote payload. Fingerprint is an opaque
// per-voter identifier; RankedIDs is the voter's full or partial ranking.
type VoteRequest struct {
	Fingerprint string   `json:"fingerprint"`
	RankedIDs   []string `json:"rankedIds"`
}
