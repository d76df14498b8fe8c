package timeseries

import (
	"fmt"
	"sync"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/spectral"
	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
)

// IndexSource computes one index grid for a tile and date.
type IndexSource interface {
	Calculate(kind spectral.Index, tile, date string) (*raster.Grid, error)
}

// Engine builds index series for one tile over an ordered list of dates.
// The source is expected to apply the same window to every date.
type Engine struct {
	source   IndexSource
	tile     string
	dates    []string
	workers  int
	progress bool
}

type Option func(*Engine)

// WithWorkers computes dates and pixel rows concurrently. 1 is sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithProgress shows a progress bar while the series is computed.
func WithProgress(on bool) Option {
	return func(e *Engine) { e.progress = on }
}

func NewEngine(source IndexSource, tile string, dates []string, opts ...Option) (*Engine, error) {
	if len(dates) == 0 {
		return nil, raster.Preconditionf("time series", raster.MismatchShape, "no dates for tile %s", tile)
	}
	e := &Engine{source: source, tile: tile, dates: append([]string(nil), dates...), workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e, nil
}

func (e *Engine) Tile() string { return e.tile }

func (e *Engine) Dates() []string { return append([]string(nil), e.dates...) }

// Series computes kind for every date. The result is in date order whatever
// the order the computations finish in.
func (e *Engine) Series(kind spectral.Index) ([]*raster.Grid, error) {
	var bar *progressbar.ProgressBar
	if e.progress {
		bar = progressbar.Default(int64(len(e.dates)), fmt.Sprintf("Computing %s series", kind))
	}
	out := make([]*raster.Grid, len(e.dates))

	if e.workers == 1 {
		for i, date := range e.dates {
			g, err := e.source.Calculate(kind, e.tile, date)
			if err != nil {
				return nil, fmt.Errorf("%s on %s: %w", kind, date, err)
			}
			out[i] = g
			if bar != nil {
				bar.Add(1)
			}
		}
		return out, nil
	}

	var (
		mu       sync.Mutex
		firstErr error
		once     sync.Once
	)
	wp := workerpool.New(e.workers)
	for i, date := range e.dates {
		wp.Submit(func() {
			g, err := e.source.Calculate(kind, e.tile, date)
			if err != nil {
				once.Do(func() { firstErr = fmt.Errorf("%s on %s: %w", kind, date, err) })
				return
			}
			mu.Lock()
			out[i] = g
			if bar != nil {
				bar.Add(1)
			}
			mu.Unlock()
		})
	}
	wp.StopWait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// BuildMatrix computes the series for kind and stacks it.
func (e *Engine) BuildMatrix(kind spectral.Index) (*Matrix, error) {
	series, err := e.Series(kind)
	if err != nil {
		return nil, err
	}
	m, err := Stack(series, e.dates)
	if err != nil {
		return nil, err
	}
	log.Debugw("time series matrix built", "index", kind, "tile", e.tile, "pixels", m.Pixels(), "steps", m.Steps())
	return m, nil
}
