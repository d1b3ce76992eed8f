package searcher

import (
	"errors"
	"os"

	"github.com/xkfz007/shardsearch/internal/engine"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// CorruptedShard is a registered shard that could not be opened.
type CorruptedShard struct {
	Shard *shard.Shard
	Err   error
}

// view is one published composite view. It is never mutated after publish.
type view struct {
	// shards is the registry's list at rebuild time, corrupted ones included,
	// so the storage check still covers them.
	shards    []*shard.Shard
	byID      map[string]*shard.Shard
	handles   map[string]*engine.Handle
	corrupted []CorruptedShard
	union     *engine.View
}

func newView(shards []*shard.Shard, handles map[string]*engine.Handle, corrupted []CorruptedShard, opts engine.Options) *view {
	byID := make(map[string]*shard.Shard, len(shards))
	open := make([]*engine.Handle, 0, len(handles))
	for _, sh := range shards {
		byID[sh.ID] = sh
		if h, ok := handles[sh.ID]; ok {
			open = append(open, h)
		}
	}
	return &view{
		shards:    shards,
		byID:      byID,
		handles:   handles,
		corrupted: corrupted,
		union:     engine.NewView(open, opts),
	}
}

func emptyView(opts engine.Options) *view {
	return newView(nil, map[string]*engine.Handle{}, nil, opts)
}

// missingFolders lists index directories that no longer exist.
func (v *view) missingFolders() []string {
	var missing []string
	for _, sh := range v.shards {
		if _, err := os.Stat(sh.IndexPath); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, sh.IndexPath)
		}
	}
	return missing
}

// shardFor resolves the shard a hit came from, by index name and then by
// UID prefix.
func (v *view) shardFor(h engine.Hit) *shard.Shard {
	if sh, ok := v.byID[h.Index]; ok {
		return sh
	}
	if id, _, ok := shard.SplitUID(h.ID); ok {
		return v.byID[id]
	}
	return nil
}

// reusable returns the open handle for sh when it was opened for the same
// registration.
func (v *view) reusable(sh *shard.Shard) (*engine.Handle, bool) {
	h, ok := v.handles[sh.ID]
	if !ok {
		return nil, false
	}
	old := h.Shard()
	if old != sh && (old.IndexPath != sh.IndexPath || !old.AddedAt.Equal(sh.AddedAt)) {
		return nil, false
	}
	return h, true
}
