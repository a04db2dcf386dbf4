package voting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverflax/bgg-gg/internal/models"
)

func games(ids ...string) []models.GameRef {
	out := make([]models.GameRef, len(ids))
	for i, id := range ids {
		out[i] = models.GameRef{ID: id, Name: "Game " + id}
	}
	return out
}

func scoreOf(t *testing.T, ranked []ScoredGame, gameID string) ScoredGame {
	t.Helper()
	for _, sg := range ranked {
		if sg.GameID == gameID {
			return sg
		}
	}
	t.Fatalf("game %s not in result", gameID)
	return ScoredGame{}
}

func TestRankBordaScores(t *testing.T) {
	// Three games, two full ballots: A gets 3+2, B gets 2+3, C gets 1+1.
	ranked := Rank(games("A", "B", "C"), map[string][]string{
		"fp1": {"A", "B", "C"},
		"fp2": {"B", "A", "C"},
	})

	require.Len(t, ranked, 3)

	a := scoreOf(t, ranked, "A")
	b := scoreOf(t, ranked, "B")
	c := scoreOf(t, ranked, "C")

	assert.Equal(t, 5, a.Score)
	assert.Equal(t, 5, b.Score)
	assert.Equal(t, 2, c.Score)
	assert.Equal(t, 2, a.VoteCount)
	assert.Equal(t, 2, b.VoteCount)
	assert.Equal(t, 2, c.VoteCount)

	assert.Equal(t, "C", ranked[2].GameID, "lowest score sorts last")
}

func TestRankPartialBallots(t *testing.T) {
	// A ballot is taken literally; unranked games get nothing from it.
	ranked := Rank(games("A", "B", "C"), map[string][]string{
		"fp1": {"B"},
	})

	b := scoreOf(t, ranked, "B")
	assert.Equal(t, 3, b.Score, "rank 0 of 3 games is worth N points")
	assert.Equal(t, 1, b.VoteCount)

	a := scoreOf(t, ranked, "A")
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, 0, a.VoteCount)
}

func TestRankZeroMentionGamesIncluded(t *testing.T) {
	ranked := Rank(games("A", "B"), map[string][]string{})

	require.Len(t, ranked, 2)
	for _, sg := range ranked {
		assert.Zero(t, sg.Score)
		assert.Zero(t, sg.VoteCount)
	}
}

func TestRankRescoresAgainstCurrentGameCount(t *testing.T) {
	ballots := map[string][]string{"fp1": {"A", "B"}}

	before := Rank(games("A", "B"), ballots)
	assert.Equal(t, 2, scoreOf(t, before, "A").Score)

	// The same ballot is worth more once a third game exists: scoring uses
	// the current game count, not the count at submission time.
	after := Rank(games("A", "B", "C"), ballots)
	assert.Equal(t, 3, scoreOf(t, after, "A").Score)
	assert.Equal(t, 2, scoreOf(t, after, "B").Score)
	assert.Equal(t, 0, scoreOf(t, after, "C").Score)
}

func TestRankIgnoresStaleBallotEntries(t *testing.T) {
	// Ballot ids not on the current game list contribute nothing.
	ranked := Rank(games("A"), map[string][]string{
		"fp1": {"gone", "A"},
	})

	a := scoreOf(t, ranked, "A")
	assert.Equal(t, 0, a.Score, "rank 1 of 1 game is worth N-1 = 0 points")
	assert.Equal(t, 1, a.VoteCount)
	require.Len(t, ranked, 1)
}

func TestRankEmptyEvent(t *testing.T) {
	assert.Empty(t, Rank(nil, nil))
}
