package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkfz007/shardsearch/internal/registry"
	"github.com/xkfz007/shardsearch/internal/searcher"
	"github.com/xkfz007/shardsearch/internal/shardtest"
)

// connect wires a real registry and searcher to an in-memory MCP client.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	dataDir := t.TempDir()

	reg, err := registry.Open(ctx, dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	require.NoError(t, reg.Add(ctx, shardtest.New(t, dataDir, "notes", shardtest.Docs(3, "kiwi")...)))
	require.NoError(t, reg.Add(ctx, shardtest.Corrupt(t, dataDir, "broken")))

	srch, err := searcher.New(ctx, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srch.Shutdown() })
	reg.SetApprover(srch)

	srv, err := NewServer(srch, reg)
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var out T
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestTools_ListedOverProtocol(t *testing.T) {
	cs := connect(t)

	res, err := cs.ListTools(context.Background(), nil)

	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search", "paged_search", "lookup", "shards"}, names)
}

func TestTools_SearchThenLookup(t *testing.T) {
	// Given: a client connected to a searcher over one healthy shard
	cs := connect(t)
	ctx := context.Background()

	// When: searching
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "kiwi"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	found := structured[SearchOutput](t, res)

	// Then: every document of the healthy shard is returned
	assert.Equal(t, 3, found.Total)
	require.Len(t, found.Documents, 3)

	// And: the UIDs round-trip through lookup, ordered by title
	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "lookup",
		Arguments: map[string]any{"uids": []string{found.Documents[2].UID, found.Documents[0].UID}},
	})
	require.NoError(t, err)
	listed := structured[LookupOutput](t, res)
	require.Len(t, listed.Documents, 2)
	assert.LessOrEqual(t, listed.Documents[0].Title, listed.Documents[1].Title)
}

func TestTools_PagedSearchClampsToLastPage(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "paged_search",
		Arguments: map[string]any{"query": "kiwi", "page_index": 9, "page_size": 2},
	})

	require.NoError(t, err)
	page := structured[PageOutput](t, res)
	assert.Equal(t, 1, page.PageIndex)
	assert.Equal(t, 2, page.PageCount)
	assert.Equal(t, 3, page.HitCount)
	assert.Len(t, page.Documents, 1)
}

func TestTools_ShardsReportsCorrupted(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "shards"})

	require.NoError(t, err)
	out := structured[ShardsOutput](t, res)
	require.Len(t, out.Shards, 2)
	flags := map[string]bool{}
	for _, s := range out.Shards {
		flags[s.ID] = s.Corrupted
	}
	assert.Equal(t, map[string]bool{"notes": false, "broken": true}, flags)
	assert.Equal(t, 1, out.Stats.Open)
	assert.Equal(t, uint64(3), out.Stats.Documents)
}

func TestTools_InvalidQueryIsToolError(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "(unbalanced"},
	})

	require.NoError(t, err)
	assert.True(t, res.IsError)
}
