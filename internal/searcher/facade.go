package searcher

import (
	"context"
	"math"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/result"
)

// WebQuery is a paged search request.
type WebQuery struct {
	Text string `json:"query"`
	// PageIndex is zero-based. Indexes past the last page return the last page.
	PageIndex int `json:"page_index"`
	// PageSize overrides the configured page size when positive.
	PageSize int `json:"page_size,omitempty"`
	// UseOr makes OR the implicit operator for this request.
	UseOr  bool             `json:"use_or,omitempty"`
	Filter query.FilterSpec `json:"-"`
}

// Search runs text over every shard and returns up to the configured
// maximum number of documents.
func (s *Searcher) Search(ctx context.Context, text string) ([]*result.Document, error) {
	if err := s.takeFault(); err != nil {
		return nil, err
	}
	q, err := s.compiler.Compile(text)
	if err != nil {
		return nil, err
	}
	m, err := s.Match(ctx, q, query.FilterSpec{}, s.maxResult)
	if err != nil {
		return nil, err
	}
	return s.assemble(m.Records, q), nil
}

// List returns the documents with the given UIDs ordered by title.
func (s *Searcher) List(ctx context.Context, uids []string) ([]*result.Document, error) {
	if err := s.takeFault(); err != nil {
		return nil, err
	}
	recs, err := s.LookupIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	docs := s.assemble(recs, nil)
	result.SortByTitle(docs)
	return docs, nil
}

// PagedSearch returns one page of results for wq.
func (s *Searcher) PagedSearch(ctx context.Context, wq WebQuery) (*result.Page, error) {
	if err := s.takeFault(); err != nil {
		return nil, err
	}
	if wq.PageIndex < 0 {
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "page index must not be negative, got %d", wq.PageIndex)
	}
	size := s.pageSize
	if wq.PageSize > 0 {
		size = wq.PageSize
	}
	if wq.PageIndex >= math.MaxInt32/size {
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "page index %d is too large", wq.PageIndex)
	}

	op := s.compiler.Operator()
	if wq.UseOr {
		op = query.OperatorOr
	}
	q, err := s.compiler.CompileWith(wq.Text, op)
	if err != nil {
		return nil, err
	}

	m, err := s.Match(ctx, q, wq.Filter, result.FetchCount(wq.PageIndex, size))
	if err != nil {
		return nil, err
	}
	return result.NewPage(s.assemble(m.Records, q), m.Total, size), nil
}

func (s *Searcher) assemble(recs []MatchRecord, q *query.Query) []*result.Document {
	docs := make([]*result.Document, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, s.assembler.Assemble(r.Hit(), r.Shard, q))
	}
	return docs
}
