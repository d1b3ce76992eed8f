package registry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// minDebounce keeps a zero debounce from running Discover once per event.
const minDebounce = 10 * time.Millisecond

// Watch runs Discover whenever <data_dir>/shards changes, once per burst
// of events closer together than debounce. It blocks until ctx is done or
// the registry closes.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce < minDebounce {
		debounce = minDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return sserrors.Newf(sserrors.ErrCodeIOFault, err, "create watcher: %v", err)
	}
	defer w.Close()

	root := r.shardsDir()
	if err := w.Add(root); err != nil {
		return sserrors.Newf(sserrors.ErrCodeIOFault, err, "watch %s: %v", root, err)
	}
	// Subdirectories are watched so the index files written into a new
	// shard directory keep the debounce alive.
	if entries, err := os.ReadDir(root); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				_ = w.Add(filepath.Join(root, e.Name()))
			}
		}
	}

	r.logger.Info("registry_watch_started",
		slog.String("dir", root),
		slog.Duration("debounce", debounce))

	deb := newDebouncer(debounce)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, change, ok := classify(root, ev)
			if !ok {
				continue
			}
			if change == dirAppeared {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			deb.add(name, change)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("registry_watch_error", slog.String("error", err.Error()))

		case batch := <-deb.Output():
			for _, name := range names(batch, dirVanished) {
				if sh, ok := r.byIndexPath(filepath.Join(root, name)); ok {
					r.logger.Warn("shard_dir_vanished",
						slog.String("shard", sh.ID),
						slog.String("index_path", sh.IndexPath))
				}
			}
			if len(names(batch, dirAppeared))+len(names(batch, dirTouched)) == 0 {
				continue
			}
			added, err := r.Discover(ctx)
			if errors.Is(err, sserrors.ErrShutDown) {
				return nil
			}
			if err != nil {
				r.logger.Warn("shard_discovery_failed", slog.String("error", err.Error()))
				continue
			}
			for _, sh := range added {
				r.logger.Info("shard_discovered",
					slog.String("shard", sh.ID),
					slog.String("index_path", sh.IndexPath))
			}
		}
	}
}

// classify maps an event under root to the shard directory it concerns.
// Events on root itself are ignored.
func classify(root string, ev fsnotify.Event) (string, dirChange, bool) {
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", dirTouched, false
	}
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	name := parts[0]
	if len(parts) == 2 {
		return name, dirTouched, true
	}
	switch {
	case ev.Has(fsnotify.Create):
		return name, dirAppeared, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return name, dirVanished, true
	default:
		return name, dirTouched, true
	}
}

func (r *Registry) byIndexPath(path string) (*shard.Shard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.shards {
		if filepath.Clean(sh.IndexPath) == path {
			return sh, true
		}
	}
	return nil, false
}
