package timeseries

import (
	"github.com/forest-guardian/sentinel-raster/internal/cache"
	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/spectral"
)

type cachedGrid struct {
	Values []float64    `json:"values"`
	Meta   raster.Meta  `json:"meta"`
	State  raster.State `json:"state"`
	Type   raster.Type  `json:"type"`
}

// CachedSource remembers computed grids between runs. scope is folded into
// every key and must capture whatever else changes the result, such as the
// window and soil factor.
type CachedSource struct {
	source IndexSource
	store  cache.CacheService[cachedGrid]
	scope  []interface{}
}

func newCachedSource(source IndexSource, store cache.CacheService[cachedGrid], scope ...interface{}) *CachedSource {
	return &CachedSource{source: source, store: store, scope: scope}
}

// NewFileCachedSource caches grids as JSON files under dir.
func NewFileCachedSource(source IndexSource, dir string, scope ...interface{}) *CachedSource {
	return newCachedSource(source, cache.NewFileCache[cachedGrid](dir), scope...)
}

func (c *CachedSource) Calculate(kind spectral.Index, tile, date string) (*raster.Grid, error) {
	key := c.store.GenerateKey(append([]interface{}{kind, tile, date}, c.scope...)...)
	if hit, ok := c.store.Get(key); ok {
		if g, err := raster.New(hit.Values, hit.Meta, hit.State, hit.Type); err == nil {
			log.Debugw("index cache hit", "index", kind, "tile", tile, "date", date)
			return g, nil
		}
	}

	g, err := c.source.Calculate(kind, tile, date)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(key, cachedGrid{Values: g.Values, Meta: g.Meta, State: g.State, Type: g.Type}); err != nil {
		log.Warnw("index not cached", "index", kind, "tile", tile, "date", date, "error", err)
	}
	return g, nil
}
