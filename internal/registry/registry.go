// Package registry is the authoritative list of shards for one data
// directory.
//
// Shards are persisted in a SQLite catalog (<data_dir>/registry.db) and the
// data directory is guarded by a file lock so only one process manages it.
// Index directories dropped into <data_dir>/shards are picked up by
// Discover, and by Watch while it runs.
//
// Removal is two-phase: Remove drops the shard from the list at once and
// hands a PendingDeletion to the Approver; the index directory is deleted
// only after the approval. Deletions interrupted by a crash are finished by
// the next Open.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xkfz007/shardsearch/internal/engine"
	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// ShardsDir is the directory under the data dir holding managed indexes.
const ShardsDir = "shards"

// Approver decides when a removed shard's storage may be deleted.
type Approver interface {
	ApproveDeletions(batch []*shard.PendingDeletion)
}

type listener struct {
	onAdded   func(*shard.Shard)
	onRemoved func(*shard.Shard)
}

// Registry is safe for concurrent use. Listeners and the approver are
// always called without the registry lock held.
type Registry struct {
	dataDir string
	logger  *slog.Logger
	retry   sserrors.RetryConfig
	lock    *dirLock
	catalog *catalog

	mu        sync.Mutex
	shards    []*shard.Shard
	listeners map[int]listener
	nextID    int
	approver  Approver
	closed    bool
	// removing holds the index paths of managed shards whose storage is
	// waiting for approval. They can't be registered again until deleted.
	removing map[string]bool

	removals sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLockRetry sets the backoff used while another process holds the
// data directory lock.
func WithLockRetry(cfg sserrors.RetryConfig) Option {
	return func(r *Registry) {
		r.retry = cfg
	}
}

// Open locks dataDir, opens its catalog and finishes deletions left over
// from a previous run. It fails with ERR_205_REGISTRY_LOCKED when another
// process keeps the lock.
func Open(ctx context.Context, dataDir string, opts ...Option) (*Registry, error) {
	r := &Registry{
		dataDir:   dataDir,
		logger:    slog.Default(),
		retry:     sserrors.DefaultRetryConfig(),
		listeners: map[int]listener{},
		removing:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(r.shardsDir(), 0o755); err != nil {
		return nil, sserrors.Newf(sserrors.ErrCodeIOFault, err, "create %s: %v", r.shardsDir(), err)
	}

	r.lock = newDirLock(dataDir)
	err := sserrors.Retry(ctx, r.retry, func() error {
		ok, err := r.lock.tryLock()
		if err != nil {
			return sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
		}
		if !ok {
			return sserrors.Newf(sserrors.ErrCodeRegistryLocked, nil, "%s", dataDir)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cat, err := openCatalog(filepath.Join(dataDir, CatalogName))
	if err != nil {
		_ = r.lock.unlock()
		return nil, sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
	}
	r.catalog = cat

	if err := r.purgePending(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	shards, err := cat.shards(ctx)
	if err != nil {
		_ = r.Close()
		return nil, sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
	}
	r.shards = shards

	r.logger.Info("registry_opened",
		slog.String("data_dir", dataDir),
		slog.Int("shards", len(shards)))
	return r, nil
}

// purgePending deletes storage whose removal was approved or in flight when
// the last process exited. No view can reference it yet.
func (r *Registry) purgePending(ctx context.Context) error {
	rows, err := r.catalog.pending(ctx)
	if err != nil {
		return sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
	}
	for _, p := range rows {
		if p.managed {
			if err := os.RemoveAll(p.indexPath); err != nil {
				r.logger.Warn("pending_deletion_purge_failed",
					slog.String("shard", p.id),
					slog.String("error", err.Error()))
				continue
			}
		}
		if err := r.catalog.clearPending(ctx, p.id); err != nil {
			return sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
		}
		r.logger.Info("pending_deletion_purged", slog.String("shard", p.id))
	}
	return nil
}

// Close waits for approved removals to finish, then releases the catalog
// and the lock. Removals still awaiting approval are finished by the next
// Open.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.removals.Wait()

	var errs []error
	if r.catalog != nil {
		errs = append(errs, r.catalog.close())
	}
	errs = append(errs, r.lock.unlock())
	return errors.Join(errs...)
}

// DataDir returns the managed data directory.
func (r *Registry) DataDir() string {
	return r.dataDir
}

func (r *Registry) shardsDir() string {
	return filepath.Join(r.dataDir, ShardsDir)
}

// Shards returns the registered shards in registration order.
func (r *Registry) Shards(ctx context.Context) ([]*shard.Shard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, sserrors.Newf(sserrors.ErrCodeShutDown, nil, "registry is closed")
	}
	return append([]*shard.Shard(nil), r.shards...), nil
}

// Get returns the shard with id.
func (r *Registry) Get(id string) (*shard.Shard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.shards {
		if sh.ID == id {
			return sh, true
		}
	}
	return nil, false
}

// Subscribe registers listeners; either may be nil. onRemoved fires once a
// removed shard's storage is gone.
func (r *Registry) Subscribe(onAdded, onRemoved func(*shard.Shard)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = listener{onAdded: onAdded, onRemoved: onRemoved}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.listeners, id)
		})
	}
}

// SetApprover sets who approves deletions. Without one, deletions are
// approved at once.
func (r *Registry) SetApprover(a Approver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approver = a
}

// Add registers sh. Its index directory must hold a bleve index; AddedAt
// is set when zero.
func (r *Registry) Add(ctx context.Context, sh *shard.Shard) error {
	if err := sh.Validate(); err != nil {
		return sserrors.Newf(sserrors.ErrCodeInvalidInput, err, "%v", err)
	}
	if !engine.IsIndexDir(sh.IndexPath) {
		return sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "%s is not an index directory", sh.IndexPath)
	}
	added := *sh
	if added.AddedAt.IsZero() {
		added.AddedAt = time.Now().UTC()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return sserrors.Newf(sserrors.ErrCodeShutDown, nil, "registry is closed")
	}
	for _, existing := range r.shards {
		if existing.ID == added.ID {
			r.mu.Unlock()
			return sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "shard %s is already registered", added.ID)
		}
	}
	if r.removing[filepath.Clean(added.IndexPath)] {
		r.mu.Unlock()
		return sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "%s is waiting to be deleted", added.IndexPath)
	}
	if err := r.catalog.insert(ctx, &added); err != nil {
		r.mu.Unlock()
		return sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
	}
	r.shards = append(r.shards, &added)
	notify := r.listenersLocked()
	r.mu.Unlock()

	r.logger.Info("shard_added",
		slog.String("shard", added.ID),
		slog.String("index_path", added.IndexPath))
	for _, l := range notify {
		if l.onAdded != nil {
			l.onAdded(&added)
		}
	}
	return nil
}

// Remove unregisters the shard and returns its pending deletion. The index
// directory is deleted after approval if it lies under the data directory;
// indexes registered from elsewhere are left in place.
func (r *Registry) Remove(ctx context.Context, id string) (*shard.PendingDeletion, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, sserrors.Newf(sserrors.ErrCodeShutDown, nil, "registry is closed")
	}
	idx := -1
	for i, sh := range r.shards {
		if sh.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "shard %s is not registered", id)
	}
	sh := r.shards[idx]
	managed := r.managed(sh.IndexPath)
	if err := r.catalog.markRemoved(ctx, sh, managed, time.Now()); err != nil {
		r.mu.Unlock()
		return nil, sserrors.Newf(sserrors.ErrCodeIOFault, err, "%v", err)
	}
	r.shards = append(r.shards[:idx:idx], r.shards[idx+1:]...)
	if managed {
		r.removing[filepath.Clean(sh.IndexPath)] = true
	}
	approver := r.approver
	d := shard.NewPendingDeletion(sh)
	r.removals.Add(1)
	r.mu.Unlock()

	r.logger.Info("shard_removed", slog.String("shard", id), slog.Bool("managed", managed))
	go r.finishRemoval(d, managed)

	if approver != nil {
		approver.ApproveDeletions([]*shard.PendingDeletion{d})
	} else {
		d.Approve()
	}
	return d, nil
}

// finishRemoval deletes the storage once d is approved.
func (r *Registry) finishRemoval(d *shard.PendingDeletion, managed bool) {
	defer r.removals.Done()
	<-d.Done()

	sh := d.Shard()
	if managed {
		defer func() {
			r.mu.Lock()
			delete(r.removing, filepath.Clean(sh.IndexPath))
			r.mu.Unlock()
		}()
		if err := os.RemoveAll(sh.IndexPath); err != nil {
			r.logger.Warn("shard_storage_delete_failed",
				slog.String("shard", sh.ID),
				slog.String("error", err.Error()))
			return
		}
	}
	if err := r.catalog.clearPending(context.Background(), sh.ID); err != nil {
		r.logger.Warn("pending_deletion_clear_failed",
			slog.String("shard", sh.ID),
			slog.String("error", err.Error()))
	}
	r.logger.Debug("shard_storage_deleted", slog.String("shard", sh.ID))

	r.mu.Lock()
	notify := r.listenersLocked()
	r.mu.Unlock()
	for _, l := range notify {
		if l.onRemoved != nil {
			l.onRemoved(sh)
		}
	}
}

// Discover registers index directories under <data_dir>/shards that aren't
// registered yet or waiting to be deleted. Directories without a shard.yaml
// get an ID equal to the directory name and no root path.
func (r *Registry) Discover(ctx context.Context) ([]*shard.Shard, error) {
	entries, err := os.ReadDir(r.shardsDir())
	if err != nil {
		return nil, sserrors.Newf(sserrors.ErrCodeIOFault, err, "read %s: %v", r.shardsDir(), err)
	}

	known := map[string]bool{}
	r.mu.Lock()
	for _, sh := range r.shards {
		known[sh.ID] = true
		known[filepath.Clean(sh.IndexPath)] = true
	}
	for path := range r.removing {
		known[path] = true
	}
	r.mu.Unlock()

	var added []*shard.Shard
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(r.shardsDir(), e.Name())
		if known[dir] || !engine.IsIndexDir(dir) {
			continue
		}
		sh, err := shard.ReadSidecar(dir)
		if errors.Is(err, os.ErrNotExist) {
			sh = &shard.Shard{ID: e.Name(), IndexPath: dir}
		} else if err != nil {
			r.logger.Warn("shard_sidecar_invalid",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			continue
		}
		if known[sh.ID] {
			continue
		}
		if err := r.Add(ctx, sh); err != nil {
			if errors.Is(err, sserrors.ErrInvalidInput) {
				r.logger.Warn("shard_discovery_skipped",
					slog.String("dir", dir),
					slog.String("error", err.Error()))
				continue
			}
			return added, err
		}
		got, _ := r.Get(sh.ID)
		added = append(added, got)
	}
	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	return added, nil
}

// managed reports whether path lies under <data_dir>/shards.
func (r *Registry) managed(path string) bool {
	rel, err := filepath.Rel(r.shardsDir(), path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func (r *Registry) listenersLocked() []listener {
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.listeners[id])
	}
	return out
}
