// Package collection owns one live collection (snippets or cheat sheets):
// its one-time reconciliation against the bundled seed, the mutation API and
// write-behind persistence.
//
// LIFECYCLE:
//
//	New → Start → (Ready) → mutations… → Close
//
// Start loads the persisted value and the seed concurrently. The persisted
// value becomes the live collection as soon as it arrives and Ready() closes;
// mutations wait for that. When the seed arrives too, Reconcile runs once,
// unless a mutation already marked the collection Synced.
//
// LOCKING:
// mu guards the snapshot, the latch, the version and the disposed flag. Every
// writer replaces the entities slice instead of editing it, so a slice handed
// out by Snapshot stays valid (and must not be modified by the caller).
package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/snippetbase/internal/metrics"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/seed"
	"github.com/sakif/snippetbase/internal/storage"
)

// Snapshot is a consistent view of a collection at one version.
type Snapshot struct {
	Domain   model.Domain
	Entities []model.Entity
	Version  uint64
	State    SyncState
}

type Collection struct {
	domain model.Domain
	store  *storage.Store
	loader seed.Loader
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	entities []model.Entity
	seed     []model.Entity      // nil until the seed has resolved
	removed  map[string]struct{} // ids deleted or replaced away this session
	version  uint64
	flushed  uint64 // version last handed to the store
	state    SyncState
	disposed bool
	cancel   context.CancelFunc

	ready     chan struct{}
	readyOnce sync.Once

	settled     chan struct{}
	settledOnce sync.Once

	flushMu sync.Mutex // serializes store writes
	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Collection.
type Option func(*Collection)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

func New(domain model.Domain, store *storage.Store, loader seed.Loader, logger *slog.Logger, opts ...Option) *Collection {
	c := &Collection{
		domain:  domain,
		store:   store,
		loader:  loader,
		logger:  logger.With(slog.String("domain", string(domain))),
		now:     time.Now,
		removed: make(map[string]struct{}),
		ready:   make(chan struct{}),
		settled: make(chan struct{}),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection) Domain() model.Domain { return c.domain }

// Start begins loading. Only the first call does anything.
func (c *Collection) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != Uninitialized || c.disposed {
		c.mu.Unlock()
		return
	}
	c.state = Syncing
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.flushLoop()
	go c.load(loadCtx)
}

// Ready is closed once the persisted value has been applied, or on Close.
func (c *Collection) Ready() <-chan struct{} { return c.ready }

// WaitReady blocks until Ready or until ctx is done.
func (c *Collection) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settled is closed once loading has finished, whether or not the seed could
// be reconciled, or on Close.
func (c *Collection) Settled() <-chan struct{} { return c.settled }

// WaitSettled blocks until Settled or until ctx is done.
func (c *Collection) WaitSettled(ctx context.Context) error {
	select {
	case <-c.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collection) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Domain:   c.domain,
		Entities: c.entities,
		Version:  c.version,
		State:    c.state,
	}
}

// Get looks id up in the live collection, then in the resolved seed. A seed
// entity that was deleted or replaced away is not found.
func (c *Collection) Get(id string) (model.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.entities, id); i >= 0 {
		return c.entities[i].Clone(), true
	}
	return c.seedEntity(id)
}

// seedEntity returns a copy of the seed entity id unless it has been removed
// from the live collection. Caller holds mu.
func (c *Collection) seedEntity(id string) (model.Entity, bool) {
	if _, gone := c.removed[id]; gone {
		return model.Entity{}, false
	}
	if i := indexOf(c.seed, id); i >= 0 {
		return c.seed[i].Clone(), true
	}
	return model.Entity{}, false
}

func (c *Collection) load(ctx context.Context) {
	defer c.settledOnce.Do(func() { close(c.settled) })

	var (
		g       errgroup.Group
		seedOut []model.Entity
	)
	g.Go(func() error {
		c.applyPersisted(c.readPersisted(ctx))
		return nil
	})
	g.Go(func() error {
		var err error
		seedOut, err = c.loader.Load(ctx, c.domain)
		return err
	})

	if err := g.Wait(); err != nil {
		// The latch stays at Syncing; the collection keeps working on what
		// was persisted.
		metrics.SeedLoadFailures.WithLabelValues(string(c.domain)).Inc()
		c.logger.Warn("seed load failed, collection will not reconcile",
			slog.String("error", err.Error()),
		)
		return
	}
	c.reconcile(seedOut)
}

func (c *Collection) readPersisted(ctx context.Context) []model.Entity {
	raw, ok := c.store.Get(ctx, c.domain.Key())
	if !ok {
		return nil
	}
	var entities []model.Entity
	if err := json.Unmarshal(raw, &entities); err != nil {
		c.logger.Warn("persisted collection is not an entity list, ignoring it",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return entities
}

func (c *Collection) applyPersisted(entities []model.Entity) {
	c.mu.Lock()
	if !c.disposed {
		c.entities = entities
		c.version++
		c.flushed = c.version
		metrics.CollectionSize.WithLabelValues(string(c.domain)).Set(float64(len(entities)))
	}
	c.mu.Unlock()
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *Collection) reconcile(seedOut []model.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := "unchanged"
	switch {
	case c.disposed:
		outcome = "discarded"
	case c.state == Synced:
		c.seed = seedOut
		outcome = "skipped"
	default:
		c.seed = seedOut
		out, changed := Reconcile(seedOut, c.entities)
		c.state = Synced
		if changed {
			outcome = "merged"
			if len(c.entities) == 0 {
				outcome = "seeded"
			}
			c.replace(out)
		}
	}

	metrics.Reconciliations.WithLabelValues(string(c.domain), outcome).Inc()
	c.logger.Info("reconciliation finished",
		slog.String("outcome", outcome),
		slog.Int("entities", len(c.entities)),
	)
}

// replace installs a new slice and schedules a flush. Caller holds mu.
func (c *Collection) replace(entities []model.Entity) {
	c.entities = entities
	c.version++
	metrics.CollectionSize.WithLabelValues(string(c.domain)).Set(float64(len(entities)))
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Collection) flushLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.kick:
			c.Flush(context.Background())
		case <-c.stop:
			return
		}
	}
}

// Flush writes the current snapshot to the store if it changed since the
// last flush. It reports whether anything was handed to the store.
func (c *Collection) Flush(ctx context.Context) bool {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	entities, version := c.entities, c.version
	dirty := version != c.flushed
	c.mu.Unlock()
	if !dirty {
		return false
	}

	if entities == nil {
		entities = []model.Entity{}
	}
	data, err := json.Marshal(entities)
	if err != nil {
		c.logger.Error("encoding collection failed", slog.String("error", err.Error()))
		return false
	}
	c.store.Put(ctx, c.domain.Key(), data)

	c.mu.Lock()
	if version > c.flushed {
		c.flushed = version
	}
	c.mu.Unlock()
	return true
}

// Close discards any load still in flight, stops the flusher and writes the
// final snapshot. It is safe to call more than once.
func (c *Collection) Close(ctx context.Context) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	cancel := c.cancel
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
	c.settledOnce.Do(func() { close(c.settled) })
	if cancel != nil {
		cancel()
		close(c.stop)
		<-c.done
	}
	c.Flush(ctx)
}
