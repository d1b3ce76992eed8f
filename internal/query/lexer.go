package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokPhrase
	tokRange
	tokAnd
	tokOr
	tokNot
	tokPlus
	tokMinus
	tokLParen
	tokRParen
	tokColon
	tokCaret
	tokTilde
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokWord:
		return "term"
	case tokPhrase:
		return "phrase"
	case tokRange:
		return "range"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokColon:
		return "':'"
	case tokCaret:
		return "'^'"
	case tokTilde:
		return "'~'"
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string
	pos  int
	// spaced is set when whitespace precedes the token.
	spaced bool
	// wild is set for terms containing an unescaped '*' or '?'.
	wild bool

	// Range bounds; "*" is an open bound.
	low, high         string
	inclLow, inclHigh bool
}

// SyntaxError is a parse failure at a byte offset of the query text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
}

func syntaxErr(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// isTermStart reports whether r may start a bare term. '+' and '-' may
// appear inside a term but start a modifier.
func isTermStart(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '+', '-', '!', '(', ')', ':', '^', '[', ']', '"', '{', '}', '~', '\\':
		return false
	}
	return true
}

func isTermChar(r rune) bool {
	return isTermStart(r) || r == '+' || r == '-'
}

// lex splits text into tokens, always ending with tokEOF.
func lex(text string) ([]token, error) {
	var toks []token
	i := 0
	for {
		start := i
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		spaced := i > start || i == 0
		if i >= len(text) {
			toks = append(toks, token{kind: tokEOF, pos: i, spaced: spaced})
			return toks, nil
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		tok := token{pos: i, spaced: spaced}

		switch {
		case strings.HasPrefix(text[i:], "&&"):
			tok.kind = tokAnd
			i += 2
		case strings.HasPrefix(text[i:], "||"):
			tok.kind = tokOr
			i += 2
		case r == '+':
			tok.kind = tokPlus
			i += size
		case r == '-':
			tok.kind = tokMinus
			i += size
		case r == '!':
			tok.kind = tokNot
			i += size
		case r == '(':
			tok.kind = tokLParen
			i += size
		case r == ')':
			tok.kind = tokRParen
			i += size
		case r == ':':
			tok.kind = tokColon
			i += size
		case r == '^':
			tok.kind = tokCaret
			i += size
		case r == '~':
			tok.kind = tokTilde
			i += size
		case r == '"':
			s, next, err := lexQuoted(text, i)
			if err != nil {
				return nil, err
			}
			tok.kind = tokPhrase
			tok.text = s
			i = next
		case r == '[' || r == '{':
			next, err := lexRange(text, i, &tok)
			if err != nil {
				return nil, err
			}
			i = next
		case r == ']' || r == '}':
			return nil, syntaxErr(i, "unexpected %q", r)
		default:
			s, wild, next, err := lexTerm(text, i)
			if err != nil {
				return nil, err
			}
			tok.kind = tokWord
			tok.text = s
			tok.wild = wild
			i = next
			if !wild && s == text[tok.pos:next] {
				switch s {
				case "AND":
					tok.kind = tokAnd
				case "OR":
					tok.kind = tokOr
				case "NOT":
					tok.kind = tokNot
				}
			}
		}
		toks = append(toks, tok)
	}
}

// lexTerm reads a bare term starting at i, resolving backslash escapes.
func lexTerm(text string, i int) (term string, wild bool, next int, err error) {
	var sb strings.Builder
	first := true
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\\' {
			if i+size >= len(text) {
				return "", false, 0, syntaxErr(i, "dangling escape character")
			}
			esc, escSize := utf8.DecodeRuneInString(text[i+size:])
			sb.WriteRune(esc)
			i += size + escSize
			first = false
			continue
		}
		if (first && !isTermStart(r)) || (!first && !isTermChar(r)) {
			break
		}
		if r == '*' || r == '?' {
			wild = true
		}
		sb.WriteRune(r)
		i += size
		first = false
	}
	return sb.String(), wild, i, nil
}

// lexQuoted reads a double-quoted string starting at the opening quote.
func lexQuoted(text string, i int) (string, int, error) {
	open := i
	i++
	var sb strings.Builder
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch r {
		case '\\':
			if i+size < len(text) {
				esc, escSize := utf8.DecodeRuneInString(text[i+size:])
				sb.WriteRune(esc)
				i += size + escSize
				continue
			}
		case '"':
			return sb.String(), i + size, nil
		}
		sb.WriteRune(r)
		i += size
	}
	return "", 0, syntaxErr(open, "unterminated quoted phrase")
}

// lexRange reads "[low TO high]"; either bracket may be '[' / ']'
// (inclusive) or '{' / '}' (exclusive).
func lexRange(text string, i int, tok *token) (int, error) {
	open := i
	tok.kind = tokRange
	tok.inclLow = text[i] == '['
	i++

	var parts []string
	for {
		for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
			i++
		}
		if i >= len(text) {
			return 0, syntaxErr(open, "unterminated range")
		}
		c := text[i]
		if c == ']' || c == '}' {
			tok.inclHigh = c == ']'
			i++
			break
		}
		if c == '"' {
			s, next, err := lexQuoted(text, i)
			if err != nil {
				return 0, err
			}
			parts = append(parts, s)
			i = next
			continue
		}
		start := i
		for i < len(text) && !strings.ContainsRune(" \t\r\n]}", rune(text[i])) {
			i++
		}
		parts = append(parts, text[start:i])
	}

	if len(parts) != 3 || parts[1] != "TO" {
		return 0, syntaxErr(open, "range must have the form [low TO high]")
	}
	tok.low, tok.high = parts[0], parts[2]
	return i, nil
}
