// Package shardtest writes small bleve shards with the production mapping.
// It backs package tests and scripts/build-sample-shards.go; shardsearch
// itself never builds shards.
package shardtest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/xkfz007/shardsearch/internal/schema"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// Doc is one document to index. Path is slash-separated and relative to
// the shard root. Type defaults to the file extension.
type Doc struct {
	Path     string
	Title    string
	Type     string
	Author   string
	Content  string
	Size     int64
	Modified time.Time
}

// Record converts d into the stored record for shard sh.
func (d Doc) Record(sh *shard.Shard) schema.Record {
	typ := d.Type
	if typ == "" {
		typ = strings.TrimPrefix(strings.ToLower(path.Ext(d.Path)), ".")
	}
	return schema.Record{
		UID:      sh.UID(d.Path),
		Title:    d.Title,
		Filename: path.Base(d.Path),
		Path:     d.Path,
		Type:     typ,
		Author:   d.Author,
		Size:     d.Size,
		Modified: d.Modified,
		Content:  d.Content,
	}
}

// Build creates the index at sh.IndexPath, indexes docs and writes the
// shard sidecar.
func Build(sh *shard.Shard, docs []Doc) error {
	im, err := schema.NewIndexMapping()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(sh.IndexPath), 0o755); err != nil {
		return err
	}
	idx, err := bleve.New(sh.IndexPath, im)
	if err != nil {
		return fmt.Errorf("create index %s: %w", sh.IndexPath, err)
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		rec := d.Record(sh)
		if err := batch.Index(rec.UID, rec.Fields()); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %s: %w", rec.UID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("commit batch: %w", err)
	}
	if err := idx.Close(); err != nil {
		return err
	}
	return shard.WriteSidecar(sh)
}

// NewShard describes a shard stored at <dataDir>/shards/<id> whose root is
// <dataDir>/roots/<id>.
func NewShard(dataDir, id string) *shard.Shard {
	return &shard.Shard{
		ID:        id,
		RootPath:  filepath.Join(dataDir, "roots", id),
		IndexPath: filepath.Join(dataDir, "shards", id),
		AddedAt:   time.Now().UTC(),
	}
}

// New builds a shard with docs under dataDir and fails the test on error.
func New(tb testing.TB, dataDir, id string, docs ...Doc) *shard.Shard {
	tb.Helper()
	sh := NewShard(dataDir, id)
	if err := Build(sh, docs); err != nil {
		tb.Fatalf("build shard %s: %v", id, err)
	}
	return sh
}

// Corrupt creates a shard directory whose index metadata is garbage.
func Corrupt(tb testing.TB, dataDir, id string) *shard.Shard {
	tb.Helper()
	sh := NewShard(dataDir, id)
	if err := os.MkdirAll(sh.IndexPath, 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sh.IndexPath, "index_meta.json"), []byte("{not json"), 0o644); err != nil {
		tb.Fatalf("write meta: %v", err)
	}
	return sh
}

// Docs generates n text documents named doc-001.txt ... whose content
// contains word. Sizes are 1..n.
func Docs(n int, word string) []Doc {
	docs := make([]Doc, 0, n)
	for i := 1; i <= n; i++ {
		docs = append(docs, Doc{
			Path:    fmt.Sprintf("doc-%03d.txt", i),
			Content: fmt.Sprintf("%s number %d", word, i),
			Size:    int64(i),
		})
	}
	return docs
}
