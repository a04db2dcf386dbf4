package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/silverflax/bgg-gg/internal/catalog"
	"github.com/silverflax/bgg-gg/internal/collection"
)

// RegisterCollectionRoutes registers the collection read/refresh endpoint.
//
// GET /collections/:username
//   - Served from the file cache when possible; fromCache reports which.
//   - ?refresh=1 forces a sync against the catalog and additionally returns
//     the change summary.
func RegisterCollectionRoutes(r gin.IRoutes, svc *collection.Service) {
	r.GET("/collections/:username", func(c *gin.Context) {
		username := c.Param("username")
		refresh := c.Query("refresh") == "1"

		if refresh {
			sum, err := svc.Refresh(c.Request.Context(), username)
			if err != nil {
				writeCatalogError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"games":     sum.AllGames,
				"fromCache": false,
				"changes":   sum,
			})
			return
		}

		games, fromCache, err := svc.Collection(c.Request.Context(), username, false)
		if err != nil {
			writeCatalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"games":     games,
			"fromCache": fromCache,
		})
	})
}

func writeCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found or private"})
	case errors.Is(err, catalog.ErrStillProcessing):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog still preparing the collection, retry shortly"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
	}
}
