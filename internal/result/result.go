// Package result materializes search hits into caller-facing documents and
// computes result pages.
package result

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/schema"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// DefaultSnippetLength is used when neither the shard nor the assembler
// sets a snippet length.
const DefaultSnippetLength = 200

// Hit is a matched record with everything copied out of the engine.
type Hit struct {
	Record    schema.Record
	Score     float64
	Fragments map[string][]string
}

// Document is one search result. It holds no reference to the engine.
type Document struct {
	UID      string    `json:"uid"`
	Title    string    `json:"title"`
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	RelPath  string    `json:"rel_path"`
	Type     string    `json:"type"`
	Author   string    `json:"author,omitempty"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified,omitempty"`
	Score    float64   `json:"score"`

	// Snippet is the best highlighted fragment, or the head of the content.
	Snippet   string   `json:"snippet,omitempty"`
	Fragments []string `json:"fragments,omitempty"`

	Query    string `json:"query,omitempty"`
	IsPhrase bool   `json:"is_phrase,omitempty"`

	ShardID   string `json:"shard_id"`
	IsMessage bool   `json:"is_message,omitempty"`
}

// Assembler builds Documents.
type Assembler struct {
	// SnippetLength applies to shards that don't configure one.
	SnippetLength int
}

// Assemble builds a Document with the default snippet length.
func Assemble(h Hit, sh *shard.Shard, q *query.Query) *Document {
	return Assembler{}.Assemble(h, sh, q)
}

// Assemble builds the Document for h found in sh. q is nil for lookups.
func (a Assembler) Assemble(h Hit, sh *shard.Shard, q *query.Query) *Document {
	rec := h.Record
	doc := &Document{
		UID:       rec.UID,
		Title:     rec.DisplayTitle(),
		Filename:  rec.Filename,
		RelPath:   rec.Path,
		Type:      rec.Type,
		Author:    rec.Author,
		Size:      rec.Size,
		Modified:  rec.Modified,
		Score:     h.Score,
		IsMessage: rec.Type == schema.MessageType,
	}
	if sh != nil {
		doc.ShardID = sh.ID
		if rec.Path != "" {
			doc.Path = filepath.Join(sh.RootPath, filepath.FromSlash(rec.Path))
		}
	}
	if doc.ShardID == "" {
		doc.ShardID, _, _ = shard.SplitUID(rec.UID)
	}
	if q != nil {
		doc.Query = q.Text
		doc.IsPhrase = q.IsPhrase
	}

	doc.Fragments = append(doc.Fragments, h.Fragments[schema.FieldContent]...)
	doc.Fragments = append(doc.Fragments, h.Fragments[schema.FieldTitle]...)
	if len(doc.Fragments) > 0 {
		doc.Snippet = doc.Fragments[0]
	} else {
		doc.Snippet = headOf(rec.Content, a.snippetLength(sh))
	}
	return doc
}

func (a Assembler) snippetLength(sh *shard.Shard) int {
	if sh != nil && sh.Config.SnippetLength > 0 {
		return sh.Config.SnippetLength
	}
	if a.SnippetLength > 0 {
		return a.SnippetLength
	}
	return DefaultSnippetLength
}

// headOf returns the first n runes of s with whitespace collapsed, cut at
// a word boundary when one is near.
func headOf(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := n
	for i := n; i > n*3/4; i-- {
		if unicode.IsSpace(r[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace) + "..."
}
