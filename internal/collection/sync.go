// Package collection reconciles a user's cached game collection against the
// external catalog and serves cache-backed reads.
package collection

import (
	"context"
	"encoding/json"
	"log"

	"github.com/silverflax/bgg-gg/internal/cache"
	"github.com/silverflax/bgg-gg/internal/catalog"
)

// detailBatchSize caps how many ids go into one detail call. Batches run
// strictly sequentially; the catalog client enforces the spacing between
// them.
const detailBatchSize = 20

// Fetcher is the catalog surface the sync engine needs.
type Fetcher interface {
	FetchSummary(ctx context.Context, username string) ([]catalog.SummaryGame, error)
	FetchDetails(ctx context.Context, ids []string) ([]catalog.GameDetail, error)
}

// ChangeSummary reports what a sync changed.
type ChangeSummary struct {
	HasNewGames       bool                 `json:"hasNewGames"`
	TotalGames        int                  `json:"totalGames"`
	NewGamesCount     int                  `json:"newGamesCount"`
	RemovedGamesCount int                  `json:"removedGamesCount"`
	NewGames          []catalog.GameDetail `json:"newGames"`
	AllGames          []catalog.GameDetail `json:"allGames"`
}

// cachedCollection is the cache payload shape for one user's collection.
type cachedCollection struct {
	Games []catalog.GameDetail `json:"games"`
}

// SyncEngine diffs the cached detail list against a fresh summary and fetches
// details only for ids that are actually new, minimizing upstream calls.
type SyncEngine struct {
	cache   *cache.FileCache
	fetcher Fetcher
}

// NewSyncEngine creates an engine writing through the given cache.
func NewSyncEngine(c *cache.FileCache, f Fetcher) *SyncEngine {
	return &SyncEngine{cache: c, fetcher: f}
}

// CacheKey returns the cache key holding username's collection.
func CacheKey(username string) string {
	return "collection-" + username
}

// Sync fetches the current summary, diffs it against the cached collection,
// fetches details for new ids in sequential batches, and writes the merged
// list back as a whole-entry replacement. When nothing changed the cache is
// left untouched.
//
// Summary fetch failures are hard errors. A failed detail batch degrades to
// bare summary records for its ids: partial detail beats total failure.
func (e *SyncEngine) Sync(ctx context.Context, username string) (ChangeSummary, error) {
	summary, err := e.fetcher.FetchSummary(ctx, username)
	if err != nil {
		return ChangeSummary{}, err
	}

	// Duplicate ids in the raw summary must collapse to one record.
	currentIDs := make([]string, 0, len(summary))
	nameByID := make(map[string]string, len(summary))
	seen := make(map[string]struct{}, len(summary))
	for _, g := range summary {
		if _, dup := seen[g.ID]; dup {
			continue
		}
		seen[g.ID] = struct{}{}
		currentIDs = append(currentIDs, g.ID)
		nameByID[g.ID] = g.Name
	}

	cachedGames := e.cachedGames(username)
	cachedIDs := make(map[string]struct{}, len(cachedGames))
	for _, g := range cachedGames {
		cachedIDs[g.ID] = struct{}{}
	}

	newIDs := make([]string, 0)
	for _, id := range currentIDs {
		if _, ok := cachedIDs[id]; !ok {
			newIDs = append(newIDs, id)
		}
	}
	removed := make(map[string]struct{})
	for id := range cachedIDs {
		if _, ok := seen[id]; !ok {
			removed[id] = struct{}{}
		}
	}

	if len(newIDs) == 0 && len(removed) == 0 {
		return ChangeSummary{
			TotalGames: len(cachedGames),
			NewGames:   []catalog.GameDetail{},
			AllGames:   cachedGames,
		}, nil
	}

	newGames := e.fetchDetails(ctx, username, newIDs, nameByID)

	merged := make([]catalog.GameDetail, 0, len(cachedGames)+len(newGames))
	for _, g := range cachedGames {
		if _, gone := removed[g.ID]; !gone {
			merged = append(merged, g)
		}
	}
	merged = append(merged, newGames...)

	e.cache.Set(CacheKey(username), cachedCollection{Games: merged}, 0)

	return ChangeSummary{
		HasNewGames:       len(newGames) > 0,
		TotalGames:        len(merged),
		NewGamesCount:     len(newGames),
		RemovedGamesCount: len(removed),
		NewGames:          newGames,
		AllGames:          merged,
	}, nil
}

// fetchDetails resolves newIDs batch by batch. A failing batch falls back to
// bare summary records for its ids.
func (e *SyncEngine) fetchDetails(ctx context.Context, username string, newIDs []string, nameByID map[string]string) []catalog.GameDetail {
	out := make([]catalog.GameDetail, 0, len(newIDs))

	for start := 0; start < len(newIDs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(newIDs) {
			end = len(newIDs)
		}
		batch := newIDs[start:end]

		details, err := e.fetcher.FetchDetails(ctx, batch)
		if err != nil {
			log.Printf("collection sync %s: detail batch failed, keeping summary records: %v", username, err)
			for _, id := range batch {
				out = append(out, catalog.GameDetail{ID: id, Name: nameByID[id]})
			}
			continue
		}
		out = append(out, details...)
	}
	return out
}

func (e *SyncEngine) cachedGames(username string) []catalog.GameDetail {
	raw, ok := e.cache.Get(CacheKey(username), 0)
	if !ok {
		return nil
	}
	var cc cachedCollection
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil
	}
	return cc.Games
}
