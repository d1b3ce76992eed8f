package mcp

import (
	"time"

	"github.com/xkfz007/shardsearch/internal/result"
	"github.com/xkfz007/shardsearch/internal/searcher"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the query to run, in Lucene-style syntax"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return, default 20"`
}

// PagedSearchInput defines the input schema for the paged_search tool.
type PagedSearchInput struct {
	Query     string   `json:"query" jsonschema:"the query to run, in Lucene-style syntax"`
	PageIndex int      `json:"page_index,omitempty" jsonschema:"zero-based page index; pages past the end return the last page"`
	PageSize  int      `json:"page_size,omitempty" jsonschema:"documents per page, default from configuration"`
	MinSize   *int64   `json:"min_size,omitempty" jsonschema:"minimum document size in bytes, inclusive"`
	MaxSize   *int64   `json:"max_size,omitempty" jsonschema:"maximum document size in bytes, inclusive"`
	Types     []string `json:"types,omitempty" jsonschema:"allowed document types such as pdf or txt; messages are always included"`
	Scope     []string `json:"scope,omitempty" jsonschema:"shard IDs to search; omit to search every shard"`
	UseOr     bool     `json:"use_or,omitempty" jsonschema:"use OR instead of AND between bare terms"`
}

// LookupInput defines the input schema for the lookup tool.
type LookupInput struct {
	UIDs []string `json:"uids" jsonschema:"document UIDs in the form <shard>/<relative path>"`
}

// ShardsInput defines the input schema for the shards tool (no parameters).
type ShardsInput struct{}

// DocumentOutput is one document as returned to clients.
type DocumentOutput struct {
	UID      string  `json:"uid" jsonschema:"document UID, usable with the lookup tool"`
	Title    string  `json:"title"`
	Path     string  `json:"path" jsonschema:"absolute path of the source file"`
	Type     string  `json:"type"`
	Author   string  `json:"author,omitempty"`
	Size     int64   `json:"size"`
	Modified string  `json:"modified,omitempty" jsonschema:"last modification time, RFC 3339"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet,omitempty"`
	ShardID  string  `json:"shard_id"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query     string           `json:"query"`
	Total     int              `json:"total" jsonschema:"number of documents found before the limit was applied"`
	Documents []DocumentOutput `json:"documents"`
}

// PageOutput defines the output schema for the paged_search tool.
type PageOutput struct {
	Query     string           `json:"query"`
	PageIndex int              `json:"page_index"`
	PageCount int              `json:"page_count"`
	HitCount  int              `json:"hit_count"`
	Documents []DocumentOutput `json:"documents"`
}

// LookupOutput defines the output schema for the lookup tool.
type LookupOutput struct {
	Documents []DocumentOutput `json:"documents"`
}

// ShardOutput describes one registered shard.
type ShardOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RootPath  string `json:"root_path"`
	IndexPath string `json:"index_path"`
	Corrupted bool   `json:"corrupted"`
	Error     string `json:"error,omitempty"`
}

// ShardsOutput defines the output schema for the shards tool.
type ShardsOutput struct {
	Shards []ShardOutput  `json:"shards"`
	Stats  searcher.Stats `json:"stats"`
}

// ToDocumentOutput converts an assembled document.
func ToDocumentOutput(d *result.Document) DocumentOutput {
	out := DocumentOutput{
		UID:     d.UID,
		Title:   d.Title,
		Path:    d.Path,
		Type:    d.Type,
		Author:  d.Author,
		Size:    d.Size,
		Score:   d.Score,
		Snippet: d.Snippet,
		ShardID: d.ShardID,
	}
	if !d.Modified.IsZero() {
		out.Modified = d.Modified.UTC().Format(time.RFC3339)
	}
	return out
}

func toDocumentOutputs(docs []*result.Document) []DocumentOutput {
	out := make([]DocumentOutput, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentOutput(d))
	}
	return out
}
