package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silverflax/bgg-gg/internal/auth"
	"github.com/silverflax/bgg-gg/internal/cache"
	"github.com/silverflax/bgg-gg/internal/collection"
	"github.com/silverflax/bgg-gg/internal/events"
	"github.com/silverflax/bgg-gg/internal/handlers"
)

// NewRouter wires the public endpoints and the API.
// Public: /health, collection reads, event reads, voting.
// Creator-token gated (verified per event): event mutation.
func NewRouter(svc *collection.Service, st *events.Store, fc *cache.FileCache) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness plus a peek at the cache, useful when debugging eviction.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"cache":  fc.Stats(),
		})
	})

	// Every API route sees the creator token when one is presented; the
	// event handlers decide which operations demand it.
	api := r.Group("/")
	api.Use(auth.CreatorTokenMiddleware())

	handlers.RegisterCollectionRoutes(api, svc)
	handlers.RegisterEventRoutes(api, st)

	return r
}
