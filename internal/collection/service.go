package collection

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/singleflight"

	"github.com/silverflax/bgg-gg/internal/cache"
	"github.com/silverflax/bgg-gg/internal/catalog"
)

// Service is the cache-backed read path for collections. A hit answers from
// the file cache; a miss (or forced refresh) runs the sync engine, with
// concurrent requests for the same user collapsed into one upstream sync.
type Service struct {
	cache  *cache.FileCache
	engine *SyncEngine
	group  singleflight.Group
}

// NewService wires a service over the given cache and engine.
func NewService(c *cache.FileCache, e *SyncEngine) *Service {
	return &Service{cache: c, engine: e}
}

// Collection returns the user's games and whether they came from the cache.
func (s *Service) Collection(ctx context.Context, username string, refresh bool) ([]catalog.GameDetail, bool, error) {
	if !refresh {
		if raw, ok := s.cache.Get(CacheKey(username), 0); ok {
			var cc cachedCollection
			if err := json.Unmarshal(raw, &cc); err == nil {
				return cc.Games, true, nil
			}
		}
	}

	sum, err := s.Refresh(ctx, username)
	if err != nil {
		return nil, false, err
	}
	return sum.AllGames, false, nil
}

// Refresh forces a sync and returns the change summary. Concurrent refreshes
// for the same user share one sync run.
func (s *Service) Refresh(ctx context.Context, username string) (ChangeSummary, error) {
	v, err, _ := s.group.Do(username, func() (any, error) {
		return s.engine.Sync(ctx, username)
	})
	if err != nil {
		return ChangeSummary{}, err
	}
	return v.(ChangeSummary), nil
}
