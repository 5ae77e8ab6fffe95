package handlers

import (
	"context"
	"errors"
	"sync"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/metrics"
	"duty-route-service/internal/ports"
	"duty-route-service/internal/services"
)

// ErrNoTables is returned by chain operations before a transit export has
// been loaded.
var ErrNoTables = errors.New("no transit tables loaded")

// App holds the server's mutable session state: the loaded table index,
// the decoded off-network run paths and the duty chain built over them.
// Uploading a new table set replaces the index and starts a fresh chain.
type App struct {
	ctx      context.Context
	provider ports.RouteProvider
	legs     ports.LegCache
	metrics  *metrics.Collector

	mu       sync.RWMutex
	idx      *domain.TableIndex
	runPaths []domain.RunPath
	chain    *services.Chain
}

func NewApp(ctx context.Context, provider ports.RouteProvider, legs ports.LegCache, col *metrics.Collector) *App {
	return &App{ctx: ctx, provider: provider, legs: legs, metrics: col}
}

// SetTables installs a freshly decoded table set. The previous chain, if
// any, is discarded with it: activities reference trips and stops that no
// longer exist.
func (a *App) SetTables(tables domain.Tables) *domain.TableIndex {
	idx := domain.NewTableIndex(tables)
	chain := services.NewChain(a.ctx, idx, a.provider, a.legs, a.metrics)

	a.mu.Lock()
	a.idx = idx
	a.chain = chain
	a.mu.Unlock()
	return idx
}

func (a *App) SetRunPaths(paths []domain.RunPath) {
	a.mu.Lock()
	a.runPaths = paths
	a.mu.Unlock()
}

func (a *App) RunPaths() []domain.RunPath {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runPaths
}

func (a *App) FindRunPath(id string) (domain.RunPath, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.runPaths {
		if p.ID == id {
			return p, true
		}
	}
	return domain.RunPath{}, false
}

func (a *App) Index() (*domain.TableIndex, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.idx == nil {
		return nil, ErrNoTables
	}
	return a.idx, nil
}

func (a *App) Chain() (*services.Chain, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.chain == nil {
		return nil, ErrNoTables
	}
	return a.chain, nil
}
