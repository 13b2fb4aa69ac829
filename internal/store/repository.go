package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradelens/internal/logger"
	"tradelens/internal/metrics"
	"tradelens/internal/trades"

	"github.com/google/uuid"
)

// Snapshot is one fully derived batch. It is immutable once published: the
// Trades slice must not be modified by readers.
type Snapshot struct {
	ID       string          `json:"id"`
	Version  int64           `json:"version"`
	LoadedAt time.Time       `json:"loaded_at"`
	Source   string          `json:"source"`
	Trades   []metrics.Trade `json:"-"`
	Facets   metrics.Facets  `json:"-"`
}

// ChangeListener is called after a new snapshot is published.
type ChangeListener func(*Snapshot)

// Repository caches the derived trade batch of a single source. The batch is
// loaded on first use and kept until Invalidate or Reload.
type Repository struct {
	src trades.Source

	loadMu sync.Mutex

	mu        sync.RWMutex
	current   *Snapshot
	version   int64
	listeners []ChangeListener
}

func NewRepository(src trades.Source) (*Repository, error) {
	if src == nil {
		return nil, fmt.Errorf("trade repository requires a source")
	}
	return &Repository{src: src}, nil
}

// Source returns the description of the backing source.
func (r *Repository) Source() string {
	return r.src.Describe()
}

// Snapshot returns the cached batch, loading it if nothing is cached.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := r.cached(); snap != nil {
		return snap, nil
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if snap := r.cached(); snap != nil {
		return snap, nil
	}
	return r.loadLocked(ctx)
}

// Reload loads and derives a fresh batch and swaps it in. On failure the
// previous snapshot stays in place and the load error is returned.
func (r *Repository) Reload(ctx context.Context) (*Snapshot, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.loadLocked(ctx)
}

// Invalidate drops the cached batch; the next Snapshot call reloads.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

// OnChange registers fn to run after every successful load.
func (r *Repository) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Repository) cached() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Repository) loadLocked(ctx context.Context) (*Snapshot, error) {
	records, err := trades.Load(ctx, r.src)
	if err != nil {
		return nil, err
	}
	// derive before publishing so readers never observe a partial batch
	derived := metrics.Derive(records)
	snap := &Snapshot{
		ID:       uuid.NewString(),
		LoadedAt: time.Now(),
		Source:   r.src.Describe(),
		Trades:   derived,
		Facets:   metrics.FacetsOf(derived),
	}
	r.mu.Lock()
	r.version++
	snap.Version = r.version
	r.current = snap
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.Unlock()

	logger.Infof("[store] snapshot v%d ready trades=%d symbols=%d types=%d", snap.Version, len(snap.Trades), len(snap.Facets.Symbols), len(snap.Facets.EntryTypes))
	for _, fn := range listeners {
		notify(fn, snap)
	}
	return snap, nil
}

func notify(fn ChangeListener, snap *Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("[store] change listener panic: %v", rec)
		}
	}()
	fn(snap)
}
