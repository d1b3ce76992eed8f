// Package query compiles user query text and search filters into bleve
// queries.
//
// The syntax is the classic full-text query language: bare terms, quoted
// phrases, AND / OR / NOT (&&, ||, !), +required and -prohibited clauses,
// parentheses, field:term, term^boost, wildcards (leading wildcards
// allowed), term~ fuzzy matching and [low TO high] / {low TO high} ranges.
package query

import (
	"fmt"

	bquery "github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
)

// Query is a compiled query. It is immutable and safe to share.
type Query struct {
	// Text is the query as typed.
	Text string
	// IsPhrase is set when the whole query is one quoted phrase.
	IsPhrase bool

	q bquery.Query
}

// Bleve returns the executable query.
func (q *Query) Bleve() bquery.Query {
	return q.q
}

// Compiler parses query text, caching compiled queries.
type Compiler struct {
	op    Operator
	cache *lru.Cache[string, *Query]
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler) error

// WithOperator sets the implicit operator between bare clauses.
func WithOperator(op Operator) CompilerOption {
	return func(c *Compiler) error {
		c.op = op
		return nil
	}
}

// WithCacheSize keeps up to n compiled queries. 0 disables caching.
func WithCacheSize(n int) CompilerOption {
	return func(c *Compiler) error {
		if n <= 0 {
			c.cache = nil
			return nil
		}
		cache, err := lru.New[string, *Query](n)
		if err != nil {
			return fmt.Errorf("create query cache: %w", err)
		}
		c.cache = cache
		return nil
	}
}

// NewCompiler returns a compiler using the AND operator and no cache unless
// configured otherwise.
func NewCompiler(opts ...CompilerOption) (*Compiler, error) {
	c := &Compiler{op: OperatorAnd}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Operator returns the compiler's default operator.
func (c *Compiler) Operator() Operator {
	return c.op
}

// Compile parses text with the compiler's default operator.
func (c *Compiler) Compile(text string) (*Query, error) {
	return c.CompileWith(text, c.op)
}

// CompileWith parses text with an explicit default operator. Syntax errors
// are returned as ERR_401_INVALID_QUERY carrying the parser message.
func (c *Compiler) CompileWith(text string, op Operator) (*Query, error) {
	key := op.String() + "\x00" + text
	if c.cache != nil {
		if q, ok := c.cache.Get(key); ok {
			return q, nil
		}
	}

	bq, isPhrase, err := parse(text, op)
	if err != nil {
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidQuery, err, "%v", err).
			WithDetail("query", text)
	}
	q := &Query{Text: text, IsPhrase: isPhrase, q: bq}

	if c.cache != nil {
		c.cache.Add(key, q)
	}
	return q, nil
}

// Len reports the number of cached queries.
func (c *Compiler) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
