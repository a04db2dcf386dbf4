package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silverflax/bgg-gg/internal/auth"
	"github.com/silverflax/bgg-gg/internal/events"
	"github.com/silverflax/bgg-gg/internal/models"
	"github.com/silverflax/bgg-gg/internal/voting"
)

// RegisterEventRoutes registers the game-night event endpoints.
//
// Authorization contract: creating an event requires a non-empty createdBy;
// rename, delete, and game-list changes require the creator token from the
// X-Creator-Token header; voting deliberately requires no token: anyone with
// the event link and a fingerprint may vote.
func RegisterEventRoutes(r gin.IRoutes, st *events.Store) {
	// POST /events: create; the response is the only read carrying the
	// creator token.
	r.POST("/events", func(c *gin.Context) {
		var req models.CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.CreatedBy == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "createdBy required"})
			return
		}

		ev, ok := st.Create(req.CreatedBy, req.Name, req.ScenarioFilters)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create event"})
			return
		}
		c.JSON(http.StatusCreated, ev)
	})

	// GET /events/:id: public event plus the live Borda ranking, recomputed
	// on every read.
	r.GET("/events/:id", func(c *gin.Context) {
		ev, ok := st.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"event":   ev,
			"ranking": voting.Rank(ev.Games, ev.Votes),
		})
	})

	// PATCH /events/:id: rename and filter changes, creator only.
	r.PATCH("/events/:id", func(c *gin.Context) {
		id := c.Param("id")
		if !authorized(c, st, id) {
			return
		}

		var patch models.EventPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		ev, ok := st.Update(id, patch)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusOK, ev)
	})

	// DELETE /events/:id: creator only.
	r.DELETE("/events/:id", func(c *gin.Context) {
		id := c.Param("id")
		if !authorized(c, st, id) {
			return
		}
		if !st.Delete(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	// POST /events/:id/games: add a candidate game, creator only.
	r.POST("/events/:id/games", func(c *gin.Context) {
		id := c.Param("id")
		if !authorized(c, st, id) {
			return
		}

		var game models.GameRef
		if err := c.ShouldBindJSON(&game); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if game.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game id required"})
			return
		}

		ev, ok := st.AddGame(id, game)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusOK, ev)
	})

	// DELETE /events/:id/games/:gameId: remove a candidate game and prune
	// it from every ballot, creator only.
	r.DELETE("/events/:id/games/:gameId", func(c *gin.Context) {
		id := c.Param("id")
		gameID := c.Param("gameId")
		if !authorized(c, st, id) {
			return
		}

		current, ok := st.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if !current.HasGame(gameID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not in event"})
			return
		}

		ev, ok := st.RemoveGame(id, gameID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusOK, ev)
	})

	// POST /events/:id/vote: open to any visitor with a fingerprint.
	r.POST("/events/:id/vote", func(c *gin.Context) {
		var req models.VoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.Fingerprint == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fingerprint required"})
			return
		}

		ev, ok := st.Vote(c.Param("id"), req.Fingerprint, req.RankedIDs)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"event":   ev,
			"ranking": voting.Rank(ev.Games, ev.Votes),
		})
	})

	// GET /users/:username/events: the user's events, newest first.
	r.GET("/users/:username/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"events": st.ListByUser(c.Param("username")),
		})
	})
}

// authorized verifies the caller's creator token against the event and
// writes the error response itself when the check fails.
func authorized(c *gin.Context, st *events.Store, id string) bool {
	if _, ok := st.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return false
	}
	if !st.VerifyToken(id, auth.CreatorToken(c)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid creator token"})
		return false
	}
	return true
}
