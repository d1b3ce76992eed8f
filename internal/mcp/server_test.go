package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/result"
	"github.com/xkfz007/shardsearch/internal/searcher"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// fakeSearcher implements Searcher for handler tests.
type fakeSearcher struct {
	docs      []*result.Document
	page      *result.Page
	err       error
	corrupted []searcher.CorruptedShard
	stats     searcher.Stats

	lastText  string
	lastQuery searcher.WebQuery
	lastUIDs  []string
}

func (f *fakeSearcher) Search(_ context.Context, text string) ([]*result.Document, error) {
	f.lastText = text
	return f.docs, f.err
}

func (f *fakeSearcher) PagedSearch(_ context.Context, wq searcher.WebQuery) (*result.Page, error) {
	f.lastQuery = wq
	return f.page, f.err
}

func (f *fakeSearcher) List(_ context.Context, uids []string) ([]*result.Document, error) {
	f.lastUIDs = uids
	return f.docs, f.err
}

func (f *fakeSearcher) Corrupted() []searcher.CorruptedShard { return f.corrupted }
func (f *fakeSearcher) Stats() searcher.Stats                { return f.stats }

type fakeLister []*shard.Shard

func (l fakeLister) Shards(context.Context) ([]*shard.Shard, error) { return l, nil }

func newTestServer(t *testing.T, f *fakeSearcher, l ShardLister) *Server {
	t.Helper()
	s, err := NewServer(f, l)
	require.NoError(t, err)
	return s
}

func docs(n int) []*result.Document {
	out := make([]*result.Document, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &result.Document{UID: "s/doc.txt", Title: "doc.txt", Type: "txt"})
	}
	return out
}

func TestNewServer_RequiresSearcher(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, nil)

	var names []string
	for _, ti := range s.ListTools() {
		names = append(names, ti.Name)
		assert.NotEmpty(t, ti.Description)
	}

	assert.Equal(t, []string{"search", "paged_search", "lookup", "shards"}, names)
	name, _ := s.Info()
	assert.Equal(t, "shardsearch", name)
	assert.NotNil(t, s.MCPServer())
}

func TestSearchTool_ReturnsMarkdown(t *testing.T) {
	// Given: a searcher returning one document
	f := &fakeSearcher{docs: []*result.Document{{
		UID: "notes/todo.txt", Title: "todo.txt", Path: "/home/notes/todo.txt",
		Type: "txt", Size: 42, Score: 1.5, Snippet: "buy <mark>milk</mark>",
		Modified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}}
	s := newTestServer(t, f, nil)

	// When: calling search
	out, err := s.CallTool(context.Background(), "search", map[string]any{"query": "milk"})

	// Then: markdown is returned and the query reached the searcher
	require.NoError(t, err)
	text, ok := out.(string)
	require.True(t, ok, "expected string, got %T", out)
	assert.Equal(t, "milk", f.lastText)
	assert.Contains(t, text, "### 1. todo.txt (score: 1.50)")
	assert.Contains(t, text, "2024-03-01T12:00:00Z")
	assert.Contains(t, text, "buy **milk**")
}

func TestSearchTool_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		found int
		shown int
	}{
		{"default", 0, 30, DefaultLimit},
		{"explicit", 5, 30, 5},
		{"clamped", 10000, 300, MaxLimit},
		{"fewer than limit", 50, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeSearcher{docs: docs(tt.found)}, nil)
			out, err := s.search(context.Background(), SearchInput{Query: "doc", Limit: tt.limit})

			require.NoError(t, err)
			assert.Equal(t, tt.found, out.Total)
			assert.Len(t, out.Documents, tt.shown)
		})
	}
}

func TestSearchTool_RejectsBlankQuery(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, nil)

	_, err := s.CallTool(context.Background(), "search", map[string]any{"query": "   "})

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSearchTool_MapsSearcherErrors(t *testing.T) {
	// Given: a searcher with nothing to search
	f := &fakeSearcher{err: sserrors.Newf(sserrors.ErrCodeNothingToSearch, nil, "no shards are registered")}
	s := newTestServer(t, f, nil)

	// When: calling search
	_, err := s.CallTool(context.Background(), "search", map[string]any{"query": "anything"})

	// Then: the client sees the nothing-to-search code
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeNothingToSearch, mcpErr.Code)
}

func TestPagedSearchTool_PassesFilters(t *testing.T) {
	// Given: a paged request with every filter set
	f := &fakeSearcher{page: &result.Page{Documents: docs(2), PageIndex: 1, PageCount: 2, HitCount: 12}}
	s := newTestServer(t, f, nil)

	// When: calling paged_search with JSON-shaped arguments
	out, err := s.CallTool(context.Background(), "paged_search", map[string]any{
		"query":      "report",
		"page_index": float64(3),
		"page_size":  float64(10),
		"min_size":   float64(100),
		"max_size":   float64(2000),
		"types":      []any{"pdf"},
		"scope":      []any{"docs", "mail"},
		"use_or":     true,
	})

	// Then: the web query carries them and the clamped page is rendered
	require.NoError(t, err)
	wq := f.lastQuery
	assert.Equal(t, "report", wq.Text)
	assert.Equal(t, 3, wq.PageIndex)
	assert.Equal(t, 10, wq.PageSize)
	assert.True(t, wq.UseOr)
	require.NotNil(t, wq.Filter.MinSize)
	require.NotNil(t, wq.Filter.MaxSize)
	assert.Equal(t, int64(100), *wq.Filter.MinSize)
	assert.Equal(t, int64(2000), *wq.Filter.MaxSize)
	assert.Equal(t, []string{"pdf"}, wq.Filter.Types)
	assert.Equal(t, []string{"docs", "mail"}, wq.Filter.Scope)
	assert.Contains(t, out.(string), "Page 2 of 2 (12 documents)")
}

func TestPagedSearchTool_OmittedScopeIsUnconstrained(t *testing.T) {
	f := &fakeSearcher{page: &result.Page{}}
	s := newTestServer(t, f, nil)

	_, err := s.pagedSearch(context.Background(), PagedSearchInput{Query: "x"})

	require.NoError(t, err)
	assert.Nil(t, f.lastQuery.Filter.Scope)
	assert.True(t, f.lastQuery.Filter.IsEmpty())
}

func TestPagedSearchTool_RejectsBadPaging(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{page: &result.Page{}}, nil)

	for _, in := range []PagedSearchInput{
		{Query: "x", PageIndex: -1},
		{Query: "x", PageSize: -5},
		{Query: "x", PageSize: MaxLimit + 1},
		{Query: ""},
	} {
		_, err := s.pagedSearch(context.Background(), in)
		assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code, "%+v", in)
	}
}

func TestLookupTool(t *testing.T) {
	f := &fakeSearcher{docs: docs(1)}
	s := newTestServer(t, f, nil)

	out, err := s.CallTool(context.Background(), "lookup", map[string]any{"uids": []any{"s/doc.txt"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"s/doc.txt"}, f.lastUIDs)
	assert.Contains(t, out.(string), "## Documents")

	_, err = s.CallTool(context.Background(), "lookup", map[string]any{})
	assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)
}

func TestShardsTool_FlagsCorrupted(t *testing.T) {
	// Given: two registered shards, one of which failed to open
	good := &shard.Shard{ID: "good", RootPath: "/data/good", IndexPath: "/idx/good"}
	bad := &shard.Shard{ID: "bad", RootPath: "/data/bad", IndexPath: "/idx/bad"}
	f := &fakeSearcher{
		corrupted: []searcher.CorruptedShard{{Shard: bad, Err: sserrors.Newf(sserrors.ErrCodeCorruptShard, nil, "bad")}},
		stats:     searcher.Stats{Shards: 2, Open: 1, Corrupted: 1, Documents: 3},
	}
	s := newTestServer(t, f, fakeLister{good, bad})

	// When: listing shards
	out, err := s.listShards(context.Background())

	// Then: only the broken shard is flagged
	require.NoError(t, err)
	require.Len(t, out.Shards, 2)
	assert.False(t, out.Shards[0].Corrupted)
	assert.True(t, out.Shards[1].Corrupted)
	assert.Contains(t, out.Shards[1].Error, "corrupted")
	assert.Equal(t, uint64(3), out.Stats.Documents)
}

func TestCallTool_UnknownTool(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, nil)

	_, err := s.CallTool(context.Background(), "delete_everything", nil)

	assert.Equal(t, ErrCodeMethodNotFound, MapError(err).Code)
}

func TestCallTool_BadArgumentTypes(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, nil)

	_, err := s.CallTool(context.Background(), "paged_search", map[string]any{"query": "x", "page_index": "two"})

	assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)
}

func TestServe_UnknownTransport(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, nil)

	err := s.Serve(context.Background(), "carrier-pigeon")

	assert.ErrorContains(t, err, "unknown transport")
}
