package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/blevesearch/bleve/v2/search/searcher"

	"github.com/xkfz007/shardsearch/internal/schema"
)

var (
	// ErrEmpty means the view has no shards or no documents.
	ErrEmpty = errors.New("no documents to search")

	// ErrMemoryBudget means bleve's estimate for the search exceeded the
	// configured budget.
	ErrMemoryBudget = errors.New("search exceeds memory budget")

	// ErrTooManyClauses means a multi-term query expanded past the clause limit.
	ErrTooManyClauses = errors.New("query expands to too many terms")

	// ErrPanic wraps a panic recovered from the engine.
	ErrPanic = errors.New("engine panic")
)

// SetMaxClauseCount limits how many terms wildcard, fuzzy and range queries
// may expand to. 0 means unlimited. It applies process-wide.
func SetMaxClauseCount(n int) {
	searcher.DisjunctionMaxClauseCount = n
}

// Options configure searches on a View.
type Options struct {
	// MemoryBudget is the largest memory estimate a single search may
	// reserve, in bytes. 0 disables the check.
	MemoryBudget uint64

	// HighlightStyle names a bleve highlighter ("html", "ansi").
	// Empty uses bleve's default.
	HighlightStyle string
}

// Request is one search against a View.
type Request struct {
	Query     query.Query
	Size      int
	Highlight bool
}

// Hit is one matched document, detached from the engine.
type Hit struct {
	// Index is the name of the index that produced the hit (the shard ID).
	Index     string
	ID        string
	Score     float64
	Fields    map[string]interface{}
	Fragments map[string][]string
}

// Result holds the best hits and the total number of matches.
type Result struct {
	Hits  []Hit
	Total uint64
}

// View unions a set of open handles. It never closes the handles.
type View struct {
	alias   bleve.IndexAlias
	handles []*Handle
	docs    uint64
	opts    Options
}

// NewView builds a view over handles.
func NewView(handles []*Handle, opts Options) *View {
	indexes := make([]bleve.Index, 0, len(handles))
	var docs uint64
	for _, h := range handles {
		indexes = append(indexes, h.index)
		docs += h.docs
	}
	return &View{
		alias:   bleve.NewIndexAlias(indexes...),
		handles: handles,
		docs:    docs,
		opts:    opts,
	}
}

// DocCount is the total number of documents across the view.
func (v *View) DocCount() uint64 {
	return v.docs
}

// Len is the number of unioned handles.
func (v *View) Len() int {
	return len(v.handles)
}

// Search runs req. Hits are ordered by score, then by document ID so that
// equal scores from different shards keep a stable order.
func (v *View) Search(ctx context.Context, req Request) (res *Result, err error) {
	if len(v.handles) == 0 || v.docs == 0 {
		return nil, ErrEmpty
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("search size must be positive, got %d", req.Size)
	}

	sr := bleve.NewSearchRequestOptions(req.Query, req.Size, 0, false)
	sr.Fields = schema.StoredFields
	sr.SortBy([]string{"-_score", "_id"})
	if req.Highlight {
		if v.opts.HighlightStyle != "" {
			sr.Highlight = bleve.NewHighlightWithStyle(v.opts.HighlightStyle)
		} else {
			sr.Highlight = bleve.NewHighlight()
		}
		sr.Highlight.AddField(schema.FieldContent)
	}

	if budget := v.opts.MemoryBudget; budget > 0 {
		ctx = context.WithValue(ctx, bleve.SearchQueryStartCallbackKey,
			bleve.SearchQueryStartCallbackFn(func(size uint64) error {
				if size > budget {
					return fmt.Errorf("%w: needs %d bytes, budget %d", ErrMemoryBudget, size, budget)
				}
				return nil
			}))
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	out, err := v.alias.SearchInContext(ctx, sr)
	if err != nil {
		return nil, classify(err)
	}
	if out.Status != nil && len(out.Status.Errors) > 0 {
		return nil, classify(firstError(out.Status.Errors))
	}

	res = &Result{Total: out.Total, Hits: make([]Hit, 0, len(out.Hits))}
	for _, h := range out.Hits {
		res.Hits = append(res.Hits, Hit{
			Index:     h.Index,
			ID:        h.ID,
			Score:     h.Score,
			Fields:    copyFields(h.Fields),
			Fragments: copyFragments(h.Fragments),
		})
	}
	return res, nil
}

// Close releases the alias. The handles stay open.
func (v *View) Close() error {
	return v.alias.Close()
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrMemoryBudget):
		return err
	case strings.Contains(err.Error(), ErrMemoryBudget.Error()):
		return fmt.Errorf("%w: %v", ErrMemoryBudget, err)
	case strings.Contains(err.Error(), "TooManyClauses"):
		return fmt.Errorf("%w: %v", ErrTooManyClauses, err)
	case errors.Is(err, bleve.ErrorAliasEmpty):
		return fmt.Errorf("%w: %v", ErrEmpty, err)
	}
	return err
}

// firstError picks deterministically among per-index failures.
func firstError(errs map[string]error) error {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("index %s: %w", names[0], errs[names[0]])
}

func copyFields(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyFragments(in search.FieldFragmentMap) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
