package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkfz007/shardsearch/internal/searcher"
)

func TestFormatSearch_Basic(t *testing.T) {
	// Given: one highlighted document
	out := SearchOutput{
		Query: "fox",
		Total: 1,
		Documents: []DocumentOutput{{
			UID: "docs/a.txt", Title: "a.txt", Path: "/root/a.txt", Type: "txt",
			Size: 12, Score: 0.87, Snippet: "the <mark>fox</mark>\njumps",
		}},
	}

	// When: formatting
	md := FormatSearch(out)

	// Then: the markdown carries title, score, UID and a bold snippet
	assert.Contains(t, md, `## Search Results for "fox"`)
	assert.Contains(t, md, "Found 1 document\n")
	assert.Contains(t, md, "### 1. a.txt (score: 0.87)")
	assert.Contains(t, md, "UID: `docs/a.txt`")
	assert.Contains(t, md, "> the **fox** jumps")
}

func TestFormatSearch_Truncated(t *testing.T) {
	out := SearchOutput{Query: "x", Total: 5, Documents: []DocumentOutput{{UID: "s/1"}, {UID: "s/2"}}}

	md := FormatSearch(out)

	assert.Contains(t, md, "Found 5 documents, showing the first 2")
	assert.Contains(t, md, "### 2. s/2")
}

func TestFormatSearch_Empty(t *testing.T) {
	assert.Equal(t, `No documents found for "zzz"`, FormatSearch(SearchOutput{Query: "zzz"}))
}

func TestFormatPage_NumbersFromPageStart(t *testing.T) {
	tests := []struct {
		name  string
		out   PageOutput
		first string
	}{
		{
			name:  "middle page",
			out:   PageOutput{Query: "q", PageIndex: 1, PageCount: 3, HitCount: 101, Documents: make([]DocumentOutput, 50)},
			first: "### 51.",
		},
		{
			name:  "last page",
			out:   PageOutput{Query: "q", PageIndex: 2, PageCount: 3, HitCount: 101, Documents: make([]DocumentOutput, 1)},
			first: "### 101.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := FormatPage(tt.out)

			assert.Contains(t, md, "101 documents")
			assert.Contains(t, md, tt.first)
		})
	}
}

func TestFormatShards(t *testing.T) {
	out := ShardsOutput{
		Shards: []ShardOutput{
			{ID: "docs", Name: "docs", RootPath: "/home/docs"},
			{ID: "bad", Name: "bad", RootPath: "/home/bad", Corrupted: true, Error: "index shard is corrupted"},
		},
		Stats: searcher.Stats{Shards: 2, Open: 1, Corrupted: 1, Documents: 7},
	}

	md := FormatShards(out)

	assert.Contains(t, md, "2 shards registered, 1 open, 1 corrupted, 7 documents searchable")
	assert.Contains(t, md, "| docs | docs | /home/docs | ok |")
	assert.Contains(t, md, "| bad | bad | /home/bad | corrupted: index shard is corrupted |")
}

func TestFormatShards_Empty(t *testing.T) {
	assert.Contains(t, FormatShards(ShardsOutput{}), "No folders are indexed yet.")
}
