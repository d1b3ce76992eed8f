package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/xkfz007/shardsearch/internal/schema"
)

// Operator is the implicit operator between bare clauses.
type Operator int

const (
	// OperatorAnd requires every bare clause.
	OperatorAnd Operator = iota
	// OperatorOr requires at least one bare clause.
	OperatorOr
)

func (o Operator) String() string {
	if o == OperatorOr {
		return "OR"
	}
	return "AND"
}

type conjunction int

const (
	conjNone conjunction = iota
	conjAnd
	conjOr
)

type modifier int

const (
	modNone modifier = iota
	modNot
	modReq
)

type occur int

const (
	occurShould occur = iota
	occurMust
	occurMustNot
)

type clause struct {
	occur occur
	q     bquery.Query
}

// defaultSimilarity is the similarity of "term~" without a parameter.
const defaultSimilarity = 0.5

// maxEdits is the largest edit distance the engine supports.
const maxEdits = 2

// fieldAliases maps accepted field names onto schema fields.
var fieldAliases = map[string]string{
	"contents": schema.FieldContent,
	"name":     schema.FieldFilename,
}

type parser struct {
	toks []token
	pos  int
	op   Operator
}

// parse compiles text with operator op.
func parse(text string, op Operator) (bquery.Query, bool, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, false, err
	}
	if len(toks) == 1 {
		return nil, false, syntaxErr(0, "empty query")
	}
	isPhrase := len(toks) == 2 && toks[0].kind == tokPhrase

	p := &parser{toks: toks, op: op}
	q, err := p.parseQuery(schema.DefaultField, 0)
	if err != nil {
		return nil, false, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, false, syntaxErr(tok.pos, "unexpected %s", tok.kind)
	}
	return q, isPhrase, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// parseQuery reads clauses until EOF or, inside a group, the closing ')'.
func (p *parser) parseQuery(field string, depth int) (bquery.Query, error) {
	var clauses []clause
	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			break
		}
		if tok.kind == tokRParen {
			if depth == 0 {
				return nil, syntaxErr(tok.pos, "unexpected ')'")
			}
			break
		}

		conj := conjNone
		switch tok.kind {
		case tokAnd, tokOr:
			if len(clauses) == 0 {
				return nil, syntaxErr(tok.pos, "%s without a preceding clause", tok.kind)
			}
			if tok.kind == tokAnd {
				conj = conjAnd
			} else {
				conj = conjOr
			}
			p.next()
		}

		mods := modNone
		switch p.peek().kind {
		case tokNot, tokMinus:
			mods = modNot
			p.next()
		case tokPlus:
			mods = modReq
			p.next()
		}

		q, err := p.parseClause(field, depth)
		if err != nil {
			return nil, err
		}
		clauses = p.addClause(clauses, conj, mods, q)
	}

	if len(clauses) == 0 {
		return nil, syntaxErr(p.peek().pos, "empty group")
	}
	if len(clauses) == 1 && clauses[0].occur != occurMustNot {
		return clauses[0].q, nil
	}

	var must, should, mustNot []bquery.Query
	for _, c := range clauses {
		switch c.occur {
		case occurMust:
			must = append(must, c.q)
		case occurShould:
			should = append(should, c.q)
		case occurMustNot:
			mustNot = append(mustNot, c.q)
		}
	}
	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	bq.AddShould(should...)
	bq.AddMustNot(mustNot...)
	return bq, nil
}

// addClause applies classic query parser occur rules: AND promotes the
// previous clause to required, OR under the AND operator demotes it to
// optional, and prohibited clauses are never changed.
func (p *parser) addClause(clauses []clause, conj conjunction, mods modifier, q bquery.Query) []clause {
	if n := len(clauses); n > 0 {
		last := &clauses[n-1]
		if conj == conjAnd && last.occur != occurMustNot {
			last.occur = occurMust
		}
		if p.op == OperatorAnd && conj == conjOr && last.occur != occurMustNot {
			last.occur = occurShould
		}
	}

	var required, prohibited bool
	if p.op == OperatorOr {
		prohibited = mods == modNot
		required = mods == modReq
		if conj == conjAnd && !prohibited {
			required = true
		}
	} else {
		prohibited = mods == modNot
		required = !prohibited && conj != conjOr
	}

	c := clause{q: q, occur: occurShould}
	switch {
	case prohibited:
		c.occur = occurMustNot
	case required:
		c.occur = occurMust
	}
	return append(clauses, c)
}

func (p *parser) parseClause(field string, depth int) (bquery.Query, error) {
	tok := p.peek()

	if tok.kind == tokWord && p.peekAt(1).kind == tokColon {
		if tok.text == "*" && p.peekAt(2).kind == tokWord && p.peekAt(2).text == "*" {
			p.next()
			p.next()
			p.next()
			return bleve.NewMatchAllQuery(), nil
		}
		p.next()
		p.next()
		field = resolveField(tok.text)
		tok = p.peek()
	}

	var (
		q   bquery.Query
		err error
	)
	switch tok.kind {
	case tokLParen:
		p.next()
		q, err = p.parseQuery(field, depth+1)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxErr(closing.pos, "missing ')'")
		}
	case tokWord:
		p.next()
		q, err = p.termQuery(field, tok)
	case tokPhrase:
		p.next()
		q, err = p.phraseQuery(field, tok)
	case tokRange:
		p.next()
		q, err = rangeQuery(field, tok)
	case tokEOF:
		return nil, syntaxErr(tok.pos, "unexpected end of query")
	default:
		return nil, syntaxErr(tok.pos, "unexpected %s", tok.kind)
	}
	if err != nil {
		return nil, err
	}
	return p.boost(q)
}

func resolveField(name string) string {
	if f, ok := fieldAliases[strings.ToLower(name)]; ok {
		return f
	}
	return name
}

// adjacentParam returns the word glued to a preceding '~' or '^'.
func (p *parser) adjacentParam() (string, bool) {
	tok := p.peek()
	if tok.kind == tokWord && !tok.spaced {
		p.next()
		return tok.text, true
	}
	return "", false
}

func (p *parser) boost(q bquery.Query) (bquery.Query, error) {
	tok := p.peek()
	if tok.kind != tokCaret {
		return q, nil
	}
	p.next()
	raw, ok := p.adjacentParam()
	if !ok {
		return nil, syntaxErr(tok.pos, "'^' must be followed by a number")
	}
	b, err := strconv.ParseFloat(raw, 64)
	if err != nil || b < 0 || math.IsInf(b, 0) || math.IsNaN(b) {
		return nil, syntaxErr(tok.pos, "invalid boost %q", raw)
	}
	if bq, ok := q.(bquery.BoostableQuery); ok {
		bq.SetBoost(b)
	}
	return q, nil
}

func (p *parser) termQuery(field string, tok token) (bquery.Query, error) {
	fuzzy := false
	edits := 0
	if p.peek().kind == tokTilde {
		tilde := p.next()
		raw, _ := p.adjacentParam()
		n, err := fuzziness(raw, tok.text)
		if err != nil {
			return nil, syntaxErr(tilde.pos, "%s", err.Error())
		}
		fuzzy, edits = true, n
	}

	text := tok.text
	switch {
	case tok.wild:
		return wildcardQuery(field, text), nil
	case fuzzy:
		q := bleve.NewFuzzyQuery(strings.ToLower(text))
		q.SetField(field)
		q.SetFuzziness(edits)
		return q, nil
	case schema.NumericFields[field]:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, syntaxErr(tok.pos, "field %s expects a number, got %q", field, text)
		}
		incl := true
		q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &incl, &incl)
		q.SetField(field)
		return q, nil
	case field == schema.FieldType:
		return typeQuery(text), nil
	case schema.KeywordFields[field]:
		q := bleve.NewTermQuery(text)
		q.SetField(field)
		return q, nil
	}

	q := bleve.NewMatchQuery(text)
	q.SetField(field)
	if p.op == OperatorAnd {
		q.SetOperator(bquery.MatchQueryOperatorAnd)
	}
	return q, nil
}

// wildcardQuery lowercases the pattern like the analyzers do; "foo*" becomes
// a prefix query. Both expand into a scored disjunction of matching terms.
func wildcardQuery(field, text string) bquery.Query {
	pattern := strings.ToLower(text)
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		if prefix != "" && !strings.ContainsAny(prefix, "*?") {
			q := bleve.NewPrefixQuery(prefix)
			q.SetField(field)
			return q
		}
	}
	q := bleve.NewWildcardQuery(pattern)
	q.SetField(field)
	return q
}

// fuzziness converts the similarity after '~' into an edit distance. The
// similarity must be in [0,1) and is scaled by the term length, so "~1" and
// "~2" are out of range rather than edit distances.
func fuzziness(raw, term string) (int, error) {
	sim := defaultSimilarity
	if raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fuzzy parameter %q", raw)
		}
		sim = v
	}
	if math.IsNaN(sim) || sim < 0 || sim >= 1 {
		return 0, fmt.Errorf("similarity must be in [0, 1), got %s", raw)
	}

	edits := int((1 - sim) * float64(utf8.RuneCountInString(term)))
	if edits < 1 {
		edits = 1
	}
	if edits > maxEdits {
		edits = maxEdits
	}
	return edits, nil
}

// phraseQuery builds an exact phrase; "..."~N with N > 0 matches the phrase
// terms anywhere in the field.
func (p *parser) phraseQuery(field string, tok token) (bquery.Query, error) {
	slop := 0
	if p.peek().kind == tokTilde {
		tilde := p.next()
		if raw, ok := p.adjacentParam(); ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return nil, syntaxErr(tilde.pos, "invalid phrase slop %q", raw)
			}
			slop = n
		}
	}

	if field == schema.FieldType {
		return typeQuery(tok.text), nil
	}
	if schema.KeywordFields[field] {
		q := bleve.NewTermQuery(tok.text)
		q.SetField(field)
		return q, nil
	}
	if slop > 0 {
		q := bleve.NewMatchQuery(tok.text)
		q.SetField(field)
		q.SetOperator(bquery.MatchQueryOperatorAnd)
		return q, nil
	}
	q := bleve.NewMatchPhraseQuery(tok.text)
	q.SetField(field)
	return q, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Bounds used for "[* TO *]" on date fields.
var (
	earliestDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	latestDate   = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

func rangeQuery(field string, tok token) (bquery.Query, error) {
	lowOpen, highOpen := tok.low == "*", tok.high == "*"
	inclLow, inclHigh := tok.inclLow, tok.inclHigh

	switch {
	case schema.NumericFields[field]:
		var lo, hi *float64
		if !lowOpen {
			v, err := strconv.ParseFloat(tok.low, 64)
			if err != nil {
				return nil, syntaxErr(tok.pos, "range bound %q is not a number", tok.low)
			}
			lo = &v
		}
		if !highOpen {
			v, err := strconv.ParseFloat(tok.high, 64)
			if err != nil {
				return nil, syntaxErr(tok.pos, "range bound %q is not a number", tok.high)
			}
			hi = &v
		}
		if lo == nil && hi == nil {
			v := -math.MaxFloat64
			lo = &v
		}
		q := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclLow, &inclHigh)
		q.SetField(field)
		return q, nil

	case schema.DateFields[field]:
		start, end := earliestDate, latestDate
		if !lowOpen {
			t, ok := parseDate(tok.low)
			if !ok {
				return nil, syntaxErr(tok.pos, "range bound %q is not a date", tok.low)
			}
			start = t
		}
		if !highOpen {
			t, ok := parseDate(tok.high)
			if !ok {
				return nil, syntaxErr(tok.pos, "range bound %q is not a date", tok.high)
			}
			end = t
		}
		q := bleve.NewDateRangeInclusiveQuery(start, end, &inclLow, &inclHigh)
		q.SetField(field)
		return q, nil
	}

	if lowOpen && highOpen {
		q := bleve.NewWildcardQuery("*")
		q.SetField(field)
		return q, nil
	}
	var lo, hi string
	if !lowOpen {
		lo = strings.ToLower(tok.low)
	}
	if !highOpen {
		hi = strings.ToLower(tok.high)
	}
	q := bleve.NewTermRangeInclusiveQuery(lo, hi, &inclLow, &inclHigh)
	q.SetField(field)
	return q, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
