package searcher

import (
	"context"
	"strings"

	"github.com/xkfz007/shardsearch/internal/engine"
	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/result"
	"github.com/xkfz007/shardsearch/internal/schema"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// MatchRecord is one hit, copied out of the engine.
type MatchRecord struct {
	// Ordinal is the position in the composite result.
	Ordinal   int
	Score     float64
	Shard     *shard.Shard
	Record    schema.Record
	Fragments map[string][]string
}

// Hit converts m for result assembly.
func (m MatchRecord) Hit() result.Hit {
	return result.Hit{Record: m.Record, Score: m.Score, Fragments: m.Fragments}
}

// Matches is the outcome of Match.
type Matches struct {
	Records []MatchRecord
	// Total is the number of matching documents, which may exceed
	// len(Records).
	Total int
}

// Match runs q restricted by filter and returns up to maxResults records
// by descending score.
func (s *Searcher) Match(ctx context.Context, q *query.Query, filter query.FilterSpec, maxResults int) (*Matches, error) {
	if q == nil {
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "query is required")
	}
	if maxResults <= 0 {
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, "max results must be positive, got %d", maxResults)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.searchable()
	if err != nil {
		return nil, err
	}
	res, err := v.union.Search(ctx, engine.Request{
		Query:     query.Apply(q, filter),
		Size:      maxResults,
		Highlight: true,
	})
	if err != nil {
		return nil, engine.Translate(err)
	}
	return &Matches{Records: v.records(res), Total: int(res.Total)}, nil
}

// LookupIDs returns the documents with the given UIDs, in no particular
// order. Unknown UIDs are skipped.
func (s *Searcher) LookupIDs(ctx context.Context, uids []string) ([]MatchRecord, error) {
	uids = dedupe(uids)

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.searchable()
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return []MatchRecord{}, nil
	}
	res, err := v.union.Search(ctx, engine.Request{
		Query: query.IDQuery(uids),
		Size:  len(uids),
	})
	if err != nil {
		return nil, engine.Translate(err)
	}
	return v.records(res), nil
}

// searchable returns the live view after the checks every search makes.
// Called with the read lock held.
func (s *Searcher) searchable() (*view, error) {
	if s.closed {
		return nil, sserrors.Newf(sserrors.ErrCodeShutDown, nil, "")
	}
	v := s.view
	if len(v.shards) == 0 {
		return nil, sserrors.Newf(sserrors.ErrCodeNothingToSearch, nil, "no shards are registered")
	}
	if missing := v.missingFolders(); len(missing) > 0 {
		return nil, sserrors.Newf(sserrors.ErrCodeFolderMissing, nil, "%s", strings.Join(missing, ", ")).
			WithDetail("paths", strings.Join(missing, "\n"))
	}
	return v, nil
}

func (v *view) records(res *engine.Result) []MatchRecord {
	out := make([]MatchRecord, 0, len(res.Hits))
	for i, h := range res.Hits {
		out = append(out, MatchRecord{
			Ordinal:   i,
			Score:     h.Score,
			Shard:     v.shardFor(h),
			Record:    schema.RecordFromFields(h.Fields),
			Fragments: h.Fragments,
		})
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
