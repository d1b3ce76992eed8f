package searcher

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/result"
	"github.com/xkfz007/shardsearch/internal/shardtest"
)

func uids(docs []*result.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.UID
	}
	return out
}

func TestSearch_AssemblesDocuments(t *testing.T) {
	// Given: a shard with a titled document
	dir := t.TempDir()
	sh := shardtest.New(t, dir, "one",
		shardtest.Doc{Path: "notes/plan.txt", Title: "The Plan", Content: "apple harvest plan", Size: 18},
		shardtest.Doc{Path: "other.txt", Content: "pears only"},
	)
	s := newSearcher(t, newFakeRegistry(sh))

	// When: searching
	docs, err := s.Search(context.Background(), "apple")

	// Then: the document is materialized with shard data
	require.NoError(t, err)
	require.Len(t, docs, 1)
	d := docs[0]
	assert.Equal(t, "one/notes/plan.txt", d.UID)
	assert.Equal(t, "The Plan", d.Title)
	assert.Equal(t, filepath.Join(sh.RootPath, "notes", "plan.txt"), d.Path)
	assert.Equal(t, "one", d.ShardID)
	assert.Equal(t, "apple", d.Query)
	assert.Contains(t, d.Snippet, "apple")
	assert.Equal(t, int64(18), d.Size)
}

func TestSearch_CapsAtMaxResults(t *testing.T) {
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one", shardtest.Docs(20, "apple")...)),
		WithMaxResults(5))

	docs, err := s.Search(context.Background(), "apple")

	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestSearch_InvalidQuery(t *testing.T) {
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one", shardtest.Docs(1, "apple")...)))

	_, err := s.Search(context.Background(), "apple~7")

	assert.ErrorIs(t, err, sserrors.ErrInvalidQuery)
}

func TestSearch_PhraseFlag(t *testing.T) {
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one", shardtest.Docs(3, "apple")...)))

	docs, err := s.Search(context.Background(), `"apple number"`)

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.True(t, docs[0].IsPhrase)
}

func TestList_SortedByTitle(t *testing.T) {
	// Given: documents titled out of order
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one",
		shardtest.Doc{Path: "c.txt", Title: "Cherry2", Content: "x"},
		shardtest.Doc{Path: "a.txt", Title: "apple", Content: "x"},
		shardtest.Doc{Path: "b.txt", Title: "Banana", Content: "x"},
	)))

	// When: listing them by UID
	docs, err := s.List(context.Background(), []string{"one/c.txt", "one/b.txt", "one/a.txt"})

	// Then: they come back alphanumerically, ignoring case
	require.NoError(t, err)
	var titles []string
	for _, d := range docs {
		titles = append(titles, d.Title)
		assert.Empty(t, d.Query)
	}
	assert.Equal(t, []string{"apple", "Banana", "Cherry2"}, titles)
}

func TestPagedSearch_Boundary(t *testing.T) {
	// Given: 101 equally relevant documents and a page size of 50
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one", shardtest.Docs(101, "apple")...)),
		WithPageSize(50))
	ctx := context.Background()

	tests := []struct {
		request int
		index   int
		first   int
		count   int
	}{
		{0, 0, 1, 50},
		{1, 1, 51, 50},
		{2, 2, 101, 1},
		{5, 2, 101, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.request), func(t *testing.T) {
			// When: requesting the page
			p, err := s.PagedSearch(ctx, WebQuery{Text: "apple", PageIndex: tt.request})

			// Then: it maps onto the expected window
			require.NoError(t, err)
			assert.Equal(t, tt.index, p.PageIndex)
			assert.Equal(t, 3, p.PageCount)
			assert.Equal(t, 101, p.HitCount)
			require.Len(t, p.Documents, tt.count)
			assert.Equal(t, fmt.Sprintf("one/doc-%03d.txt", tt.first), p.Documents[0].UID)
		})
	}
}

func TestPagedSearch_Idempotent(t *testing.T) {
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one", shardtest.Docs(30, "apple")...)))
	wq := WebQuery{Text: "apple", PageIndex: 1, PageSize: 7}

	a, err := s.PagedSearch(context.Background(), wq)
	require.NoError(t, err)
	b, err := s.PagedSearch(context.Background(), wq)
	require.NoError(t, err)

	assert.Equal(t, uids(a.Documents), uids(b.Documents))
	assert.Equal(t, a.PageIndex, b.PageIndex)
	assert.Equal(t, a.PageCount, b.PageCount)
	assert.Equal(t, a.HitCount, b.HitCount)
	assert.Equal(t, 5, a.PageCount)
}

func TestPagedSearch_FiltersAndOperator(t *testing.T) {
	dir := t.TempDir()
	reg := newFakeRegistry(
		shardtest.New(t, dir, "one", shardtest.Doc{Path: "a.txt", Content: "apple"}, shardtest.Doc{Path: "b.txt", Content: "pear"}),
		shardtest.New(t, dir, "two", shardtest.Doc{Path: "c.txt", Content: "apple pear"}),
	)
	s := newSearcher(t, reg)
	ctx := context.Background()

	and, err := s.PagedSearch(ctx, WebQuery{Text: "apple pear"})
	require.NoError(t, err)
	assert.Equal(t, []string{"two/c.txt"}, uids(and.Documents))

	or, err := s.PagedSearch(ctx, WebQuery{Text: "apple pear", UseOr: true, Filter: query.FilterSpec{Scope: []string{"one"}}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one/a.txt", "one/b.txt"}, uids(or.Documents))
}

func TestPagedSearch_RejectsNegativePage(t *testing.T) {
	dir := t.TempDir()
	s := newSearcher(t, newFakeRegistry(shardtest.New(t, dir, "one", shardtest.Docs(1, "apple")...)))

	_, err := s.PagedSearch(context.Background(), WebQuery{Text: "apple", PageIndex: -1})

	assert.ErrorIs(t, err, sserrors.ErrInvalidInput)
}
