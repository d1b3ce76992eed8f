package query

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/xkfz007/shardsearch/internal/schema"
	"github.com/xkfz007/shardsearch/internal/shard"
)

// FilterSpec restricts a search. Nil fields are unconstrained; all supplied
// kinds must hold together.
type FilterSpec struct {
	// MinSize and MaxSize bound the document size in bytes, inclusive.
	MinSize *int64
	MaxSize *int64

	// Types lists allowed type tags, matched case-insensitively. Message
	// documents are always allowed when a type set is given.
	Types []string

	// Scope lists shard IDs to search. An empty non-nil scope matches nothing.
	Scope []string
}

// IsEmpty reports whether the filter constrains nothing.
func (f FilterSpec) IsEmpty() bool {
	return f.MinSize == nil && f.MaxSize == nil && f.Types == nil && f.Scope == nil
}

// TypeSet returns the deduplicated type set including the message type, or
// nil when types are unconstrained. Case folding is left to the type
// field's analyzer.
func (f FilterSpec) TypeSet() []string {
	if f.Types == nil {
		return nil
	}
	seen := map[string]bool{schema.MessageType: true}
	out := []string{schema.MessageType}
	for _, t := range f.Types {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// BuildFilter returns the conjunction of the supplied filter kinds, or nil
// when f is empty. Every clause has a zero boost so filtering never changes
// relevance.
func BuildFilter(f FilterSpec) bquery.Query {
	var parts []bquery.Query

	if f.MinSize != nil || f.MaxSize != nil {
		var lo, hi *float64
		if f.MinSize != nil {
			v := float64(*f.MinSize)
			lo = &v
		}
		if f.MaxSize != nil {
			v := float64(*f.MaxSize)
			hi = &v
		}
		incl := true
		q := bleve.NewNumericRangeInclusiveQuery(lo, hi, &incl, &incl)
		q.SetField(schema.FieldSize)
		parts = append(parts, unscored(q))
	}

	if types := f.TypeSet(); types != nil {
		terms := make([]bquery.Query, 0, len(types))
		for _, t := range types {
			terms = append(terms, unscored(typeQuery(t)))
		}
		parts = append(parts, unscored(bleve.NewDisjunctionQuery(terms...)))
	}

	if f.Scope != nil {
		parts = append(parts, scopeQuery(f.Scope))
	}

	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	return bleve.NewConjunctionQuery(parts...)
}

// scopeQuery ORs one UID prefix filter per shard.
func scopeQuery(ids []string) bquery.Query {
	if len(ids) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	prefixes := make([]bquery.Query, 0, len(ids))
	for _, id := range ids {
		q := bleve.NewPrefixQuery((&shard.Shard{ID: id}).UIDPrefix())
		q.SetField(schema.FieldUID)
		prefixes = append(prefixes, unscored(q))
	}
	if len(prefixes) == 1 {
		return prefixes[0]
	}
	return unscored(bleve.NewDisjunctionQuery(prefixes...))
}

// typeQuery matches a type tag through the field's analyzer, which folds case.
func typeQuery(tag string) *bquery.MatchQuery {
	q := bleve.NewMatchQuery(tag)
	q.SetField(schema.FieldType)
	return q
}

func unscored[Q bquery.BoostableQuery](q Q) Q {
	q.SetBoost(0)
	return q
}

// Apply restricts q by f.
func Apply(q *Query, f FilterSpec) bquery.Query {
	filter := BuildFilter(f)
	if filter == nil {
		return q.Bleve()
	}
	return bleve.NewConjunctionQuery(q.Bleve(), filter)
}

// IDQuery matches documents by UID.
func IDQuery(uids []string) bquery.Query {
	if len(uids) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	terms := make([]bquery.Query, 0, len(uids))
	for _, uid := range uids {
		q := bleve.NewTermQuery(uid)
		q.SetField(schema.FieldUID)
		terms = append(terms, q)
	}
	return bleve.NewDisjunctionQuery(terms...)
}
