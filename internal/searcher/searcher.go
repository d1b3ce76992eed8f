// Package searcher serves concurrent searches over the registered shards.
//
// A Searcher owns one composite view behind a sync.RWMutex. Searches hold
// the read lock for their whole duration and copy everything they return
// out of the engine before releasing it. Rebuild and Shutdown take the write
// lock, publish a replacement view, and only then close what the old view
// held, so no search ever touches a closed index. Removed shards reach the
// searcher as PendingDeletions and are approved only after a view without
// them has been published.
package searcher

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xkfz007/shardsearch/internal/engine"
	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/result"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// Registry is the authoritative shard list.
type Registry interface {
	// Shards returns the current shards.
	Shards(ctx context.Context) ([]*shard.Shard, error)

	// Subscribe registers listeners for shards added or dropped without a
	// pending deletion. Listeners run without registry locks held.
	Subscribe(onAdded, onRemoved func(*shard.Shard)) (unsubscribe func())
}

// Stats describes the live view.
type Stats struct {
	Shards    int    `json:"shards"`
	Open      int    `json:"open"`
	Corrupted int    `json:"corrupted"`
	Documents uint64 `json:"documents"`
}

// Searcher is safe for concurrent use.
type Searcher struct {
	registry  Registry
	compiler  *query.Compiler
	assembler result.Assembler
	engine    engine.Options
	workers   int
	pageSize  int
	maxResult int
	logger    *slog.Logger

	mu          sync.RWMutex
	view        *view
	closed      bool
	unsubscribe func()

	deletions *deletionQueue

	faultMu sync.Mutex
	fault   error
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCompiler sets the query compiler.
func WithCompiler(c *query.Compiler) Option {
	return func(s *Searcher) {
		if c != nil {
			s.compiler = c
		}
	}
}

// WithEngineOptions sets the memory budget and highlighter of every view.
func WithEngineOptions(o engine.Options) Option {
	return func(s *Searcher) {
		s.engine = o
	}
}

// WithOpenWorkers bounds parallel shard opens during a rebuild.
func WithOpenWorkers(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPageSize sets the default page size of PagedSearch.
func WithPageSize(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxResults caps Search.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxResult = n
		}
	}
}

// WithSnippetLength sets the snippet length for shards that don't set one.
func WithSnippetLength(n int) Option {
	return func(s *Searcher) {
		s.assembler.SnippetLength = n
	}
}

// New builds a Searcher, subscribes to reg and publishes the first view.
// Shards that fail to open are reported by Corrupted.
func New(ctx context.Context, reg Registry, opts ...Option) (*Searcher, error) {
	if reg == nil {
		return nil, errors.New("searcher: registry is required")
	}
	s := &Searcher{
		registry:  reg,
		workers:   runtime.NumCPU(),
		pageSize:  50,
		maxResult: 10000,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		c, err := query.NewCompiler()
		if err != nil {
			return nil, err
		}
		s.compiler = c
	}
	s.view = emptyView(s.engine)
	s.deletions = newDeletionQueue(s.rebuildForDeletion, s.logger)

	unsubscribe := reg.Subscribe(s.onRegistryChange, s.onRegistryChange)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	if _, err := s.Rebuild(ctx); err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return s, nil
}

func (s *Searcher) onRegistryChange(sh *shard.Shard) {
	if _, err := s.Rebuild(context.Background()); err != nil {
		if errors.Is(err, sserrors.ErrShutDown) {
			return
		}
		s.logger.Warn("rebuild_after_registry_change_failed",
			slog.String("shard", sh.ID),
			slog.String("error", err.Error()))
		s.recordFault(err)
	}
}

// Rebuild replaces the live view with one matching the registry. Handles
// already open are carried over; the rest are opened in parallel. Shards
// that fail to open are returned and logged but don't fail the rebuild.
// When the registry can't be read an empty view is published and the fault
// returned.
func (s *Searcher) Rebuild(ctx context.Context) ([]CorruptedShard, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, sserrors.Newf(sserrors.ErrCodeShutDown, nil, "")
	}

	shards, err := s.registry.Shards(ctx)
	if err != nil {
		s.publish(emptyView(s.engine))
		return nil, sserrors.Newf(sserrors.ErrCodeIOFault, err, "read shard registry: %v", err)
	}

	next := s.openView(shards)
	s.publish(next)

	s.logger.Info("view_rebuilt",
		slog.Int("shards", len(next.shards)),
		slog.Int("open", next.union.Len()),
		slog.Int("corrupted", len(next.corrupted)),
		slog.Uint64("documents", next.union.DocCount()),
		slog.Duration("duration", time.Since(start)))
	return append([]CorruptedShard(nil), next.corrupted...), nil
}

// openView builds the next view. Called with the write lock held.
func (s *Searcher) openView(shards []*shard.Shard) *view {
	type opened struct {
		handle *engine.Handle
		err    error
	}
	results := make([]opened, len(shards))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, sh := range shards {
		if h, ok := s.view.reusable(sh); ok {
			results[i].handle = h
			continue
		}
		g.Go(func() error {
			h, err := engine.Open(sh)
			results[i] = opened{handle: h, err: err}
			return nil
		})
	}
	_ = g.Wait()

	handles := make(map[string]*engine.Handle, len(shards))
	var corrupted []CorruptedShard
	for i, sh := range shards {
		if err := results[i].err; err != nil {
			terr := engine.Translate(err)
			s.logger.Warn("shard_open_failed",
				slog.String("shard", sh.ID),
				slog.String("index_path", sh.IndexPath),
				slog.String("code", sserrors.GetCode(terr)),
				slog.String("error", err.Error()))
			corrupted = append(corrupted, CorruptedShard{Shard: sh, Err: terr})
			continue
		}
		handles[sh.ID] = results[i].handle
	}
	return newView(shards, handles, corrupted, s.engine)
}

// publish swaps in next and closes what only the old view held. Called with
// the write lock held.
func (s *Searcher) publish(next *view) {
	old := s.view
	s.view = next
	s.release(old, next.handles)
}

// release closes old's union and every handle not carried into keep.
func (s *Searcher) release(old *view, keep map[string]*engine.Handle) {
	if old == nil {
		return
	}
	if err := old.union.Close(); err != nil {
		s.logger.Warn("view_close_failed", slog.String("error", err.Error()))
	}
	for id, h := range old.handles {
		if keep[id] == h {
			continue
		}
		if err := h.Close(); err != nil {
			s.logger.Warn("shard_close_failed",
				slog.String("shard", id),
				slog.String("error", err.Error()))
		}
	}
}

// Shutdown closes the live view and stops the deletion worker. Deletions
// pending or submitted afterwards are approved immediately and every other
// operation fails with ERR_504_SHUT_DOWN. Idempotent.
func (s *Searcher) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	old := s.view
	s.view = emptyView(s.engine)
	s.release(old, nil)
	s.mu.Unlock()

	s.deletions.stop()
	s.logger.Info("searcher_shutdown")
	return nil
}

// Corrupted returns the shards the live view failed to open.
func (s *Searcher) Corrupted() []CorruptedShard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CorruptedShard(nil), s.view.corrupted...)
}

// Stats describes the live view.
func (s *Searcher) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	return Stats{
		Shards:    len(v.shards),
		Open:      v.union.Len(),
		Corrupted: len(v.corrupted),
		Documents: v.union.DocCount(),
	}
}

// recordFault keeps err for the next caller-facing search.
func (s *Searcher) recordFault(err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.fault = err
}

// takeFault returns and clears the recorded fault.
func (s *Searcher) takeFault() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	err := s.fault
	s.fault = nil
	if err == nil {
		return nil
	}
	if _, ok := sserrors.As(err); ok {
		return err
	}
	return sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
}
