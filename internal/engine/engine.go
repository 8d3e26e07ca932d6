// Package engine owns the catalog state and exposes the operations the
// editing surface calls. Operations are serialized; an Engine is safe for
// concurrent use.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/cebimar/veliger/internal/cache"
	"github.com/cebimar/veliger/internal/catalog"
	"github.com/cebimar/veliger/internal/journal"
	"github.com/cebimar/veliger/internal/match"
	"github.com/cebimar/veliger/internal/metadata"
	"github.com/cebimar/veliger/internal/metrics"
	"github.com/cebimar/veliger/internal/refs"
	"github.com/cebimar/veliger/internal/suggest"
)

var noOpLogger = zap.NewNop()

// Codec reads and writes asset metadata.
type Codec interface {
	Read(path string, opts metadata.ReadOptions) (catalog.Record, error)
	Write(rec catalog.Record) (metadata.WriteResult, error)
}

type Config struct {
	Codec    Codec
	Cache    *cache.Cache
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Language language.Tag
	Charset  metadata.Charset
}

type Engine struct {
	mu sync.Mutex

	codec    Codec
	cache    *cache.Cache
	logger   *zap.Logger
	metrics  *metrics.Metrics
	language language.Tag
	charset  metadata.Charset

	store       *catalog.Store
	journal     *journal.Journal
	suggestions *suggest.Lists
	refs        *refs.Table
	resolver    *match.Resolver
	clipboard   *catalog.Record
	unsubscribe []func()
}

// New returns an engine with empty state. Call Reload to restore the last
// snapshot.
func New(cfg Config) (*Engine, error) {
	if cfg.Codec == nil {
		return nil, newServiceError(opNew, "missing_codec", errMissingCodec)
	}
	if cfg.Cache == nil {
		return nil, newServiceError(opNew, "missing_cache", errMissingCache)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	e := &Engine{
		codec:    cfg.Codec,
		cache:    cfg.Cache,
		logger:   logger,
		metrics:  cfg.Metrics,
		language: cfg.Language,
		charset:  cfg.Charset,
		resolver: match.NewResolver(logger),
	}
	e.install(cache.State{})
	return e, nil
}

func (e *Engine) install(st cache.State) {
	for _, u := range e.unsubscribe {
		u()
	}
	e.store = catalog.NewStore(st.Records...)
	e.journal = journal.New(st.Pending...)
	e.suggestions = suggest.FromSnapshot(e.language, st.Suggestions)
	e.refs = refs.NewTable(st.References...)
	e.unsubscribe = []func(){
		e.store.Subscribe(e.journal.Observe),
		e.store.Subscribe(e.suggestions.Observe),
	}
	e.metrics.State(e.store.Len(), e.journal.Len())
}

// Reload replaces the in-memory state with the last snapshot. Units that are
// missing or corrupt start empty and are listed in the report.
func (e *Engine) Reload(ctx context.Context) cache.LoadReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, report := e.cache.Load(ctx)
	e.install(st)
	e.clipboard = nil
	e.logger.Info("catalog loaded",
		zap.Int("records", e.store.Len()),
		zap.Int("pending", e.journal.Len()),
		zap.Int("references", e.refs.Len()),
		zap.Int("corrupt_units", len(report.Corrupt)))
	return report
}

// Snapshot persists the current state.
func (e *Engine) Snapshot(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.snapshotLocked(ctx); err != nil {
		return newServiceError(opSnapshot, "save_failed", err)
	}
	return nil
}

func (e *Engine) snapshotLocked(ctx context.Context) error {
	start := time.Now()
	err := e.cache.Save(ctx, cache.State{
		Records:     e.store.Records(),
		References:  e.refs.All(),
		Pending:     e.journal.Pending(),
		Suggestions: e.suggestions.Snapshot(),
	})
	e.metrics.Snapshot(time.Since(start))
	e.metrics.State(e.store.Len(), e.journal.Len())
	return err
}

// persist snapshots after a mutation. The mutation already happened in
// memory, so a failed save is logged rather than returned.
func (e *Engine) persist(ctx context.Context, op string) {
	if err := e.snapshotLocked(ctx); err != nil {
		e.logger.Error("snapshot failed", zap.String("operation", op), zap.Error(err))
	}
}

// Entry is a catalog row as shown to the editing surface.
type Entry struct {
	Row     int            `json:"row"`
	Pending bool           `json:"pending"`
	Record  catalog.Record `json:"record"`
}

// Entries returns every row in table order.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	records := e.store.Records()
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{Row: i, Pending: e.journal.IsPending(journal.Key(r.Path)), Record: r}
	}
	return out
}

// Entry returns one row.
func (e *Engine) Entry(row int) (Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.store.Record(row)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Row: row, Pending: e.journal.IsPending(journal.Key(r.Path)), Record: r}, nil
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Len()
}

// Pending returns the filenames awaiting write-back in commit order.
func (e *Engine) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.journal.Pending()
}

// Discard forgets the pending edits of name without writing them. The
// catalog keeps the edited values.
func (e *Engine) Discard(ctx context.Context, name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.journal.Discard(name) {
		return false
	}
	e.persist(ctx, opDiscard)
	return true
}

// Resolve looks a filename up in the catalog.
func (e *Engine) Resolve(name string) (match.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver.Resolve(e.store, name)
}
