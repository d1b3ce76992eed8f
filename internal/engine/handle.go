// Package engine adapts bleve to the searcher: it opens one read-only index
// per shard and unions open indexes into a View backed by an IndexAlias.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	// Registers the analyzers referenced by the stored index mapping.
	_ "github.com/xkfz007/shardsearch/internal/schema"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// MetaFile is written by bleve into every index directory.
const MetaFile = "index_meta.json"

var (
	// ErrIndexMissing means the shard's index directory doesn't exist.
	ErrIndexMissing = errors.New("index directory does not exist")

	// ErrCorrupt means the index exists but can't be opened.
	ErrCorrupt = errors.New("index is corrupted")
)

// Handle is one open shard index. It is read-only; its document count is
// fixed at open time.
type Handle struct {
	shard *shard.Shard
	index bleve.Index
	docs  uint64

	mu     sync.Mutex
	closed bool
}

// Open opens sh's index read-only. Failures are ErrIndexMissing or wrap
// ErrCorrupt.
func Open(sh *shard.Shard) (*Handle, error) {
	if _, err := os.Stat(sh.IndexPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("shard %s: %w", sh.ID, ErrIndexMissing)
	}
	if err := validateIndexIntegrity(sh.IndexPath); err != nil {
		return nil, fmt.Errorf("shard %s: %w: %v", sh.ID, ErrCorrupt, err)
	}

	idx, err := bleve.OpenUsing(sh.IndexPath, map[string]interface{}{"read_only": true})
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			return nil, fmt.Errorf("shard %s: %w", sh.ID, ErrIndexMissing)
		}
		return nil, fmt.Errorf("shard %s: %w: %v", sh.ID, ErrCorrupt, err)
	}
	idx.SetName(sh.ID)

	docs, err := idx.DocCount()
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("shard %s: %w: count documents: %v", sh.ID, ErrCorrupt, err)
	}

	return &Handle{shard: sh, index: idx, docs: docs}, nil
}

// Shard returns the shard this handle was opened for.
func (h *Handle) Shard() *shard.Shard {
	return h.shard
}

// DocCount returns the number of documents in the shard.
func (h *Handle) DocCount() uint64 {
	return h.docs
}

// Close closes the index. Safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.index.Close()
}

// validateIndexIntegrity checks index_meta.json before bleve touches the
// directory, so a half-written shard is reported instead of opened.
func validateIndexIntegrity(path string) error {
	metaPath := filepath.Join(path, MetaFile)
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s missing", MetaFile)
	}
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", MetaFile, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", MetaFile)
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", MetaFile, err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%s is corrupt: %w", MetaFile, err)
	}
	return nil
}

// IsIndexDir reports whether dir looks like a bleve index.
func IsIndexDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MetaFile))
	return err == nil && !info.IsDir()
}

// Translate maps engine failures onto the caller-facing error set. Errors
// already translated pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := sserrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrEmpty), errors.Is(err, bleve.ErrorAliasEmpty):
		return sserrors.Newf(sserrors.ErrCodeNothingToSearch, err, "")
	case errors.Is(err, ErrIndexMissing):
		return sserrors.Newf(sserrors.ErrCodeFolderMissing, err, "%v", err)
	case errors.Is(err, ErrCorrupt):
		return sserrors.Newf(sserrors.ErrCodeCorruptShard, err, "%v", err)
	case errors.Is(err, ErrMemoryBudget), errors.Is(err, ErrTooManyClauses), errors.Is(err, ErrPanic):
		return sserrors.Newf(sserrors.ErrCodeResourceExhausted, err, "%v", err)
	case strings.Contains(err.Error(), "numHits must be > 0"):
		return sserrors.Newf(sserrors.ErrCodeNothingToSearch, err, "")
	default:
		return sserrors.Newf(sserrors.ErrCodeSearchFailed, err, "%v", err)
	}
}
