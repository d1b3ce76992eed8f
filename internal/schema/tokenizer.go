package schema

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// FilenameTokenizerName is the registered name of the file name tokenizer.
const FilenameTokenizerName = "filename_tokenizer"

func init() {
	_ = registry.RegisterTokenizer(FilenameTokenizerName, filenameTokenizerConstructor)
}

func filenameTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &filenameTokenizer{}, nil
}

// filenameTokenizer splits "AnnualReport_2009-final.PDF" into
// Annual, Report, 2009, final, PDF.
type filenameTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *filenameTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var stream analysis.TokenStream
	pos := 1
	start := -1
	var prev rune

	emit := func(end int) {
		if start < 0 || end <= start {
			return
		}
		typ := analysis.AlphaNumeric
		if isAllDigits(input[start:end]) {
			typ = analysis.Numeric
		}
		stream = append(stream, &analysis.Token{
			Term:     append([]byte(nil), input[start:end]...),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     typ,
		})
		pos++
		start = -1
	}

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			emit(i)
			prev = r
			i += size
			continue
		}
		if start >= 0 && isBoundary(prev, r, input[i+size:]) {
			emit(i)
		}
		if start < 0 {
			start = i
		}
		prev = r
		i += size
	}
	emit(len(input))

	return stream
}

// isBoundary reports a token break between prev and r: lower->Upper,
// letter<->digit, and the last capital of an acronym before a lowercase
// letter ("HTMLPage" -> HTML, Page).
func isBoundary(prev, r rune, rest []byte) bool {
	switch {
	case unicode.IsDigit(prev) != unicode.IsDigit(r):
		return true
	case unicode.IsLower(prev) && unicode.IsUpper(r):
		return true
	case unicode.IsUpper(prev) && unicode.IsUpper(r) && len(rest) > 0:
		next, _ := utf8.DecodeRune(rest)
		return unicode.IsLower(next)
	}
	return false
}

func isAllDigits(b []byte) bool {
	for _, c := range string(b) {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return len(b) > 0
}
