// Package voting turns an event's ranked ballots into a single group
// leaderboard using a Borda count.
package voting

import (
	"sort"

	"github.com/silverflax/bgg-gg/internal/models"
)

// ScoredGame is one leaderboard row. It is derived on every read, never
// stored.
type ScoredGame struct {
	GameID    string `json:"gameId"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	VoteCount int    `json:"voteCount"`
}

// Rank scores ranked ballots against the event's current game list.
//
// The game at rank i of a ballot receives N-i points where N is the current
// number of games, not the count when the ballot was cast: adding or
// removing games rescales existing ballots. A ballot is taken literally: it
// may rank only a subset of the games. VoteCount per game is the number of
// ballots mentioning it. Games no ballot mentions still appear with score 0.
//
// The result is sorted by descending score; the sort is stable over the
// event's game order but ties carry no further guarantee.
func Rank(games []models.GameRef, ballots map[string][]string) []ScoredGame {
	n := len(games)

	out := make([]ScoredGame, n)
	byID := make(map[string]*ScoredGame, n)
	for i, g := range games {
		out[i] = ScoredGame{GameID: g.ID, Name: g.Name}
		byID[g.ID] = &out[i]
	}

	for _, ranking := range ballots {
		for i, gid := range ranking {
			sg, ok := byID[gid]
			if !ok {
				continue
			}
			sg.Score += n - i
			sg.VoteCount++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
