package result

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SortByTitle orders docs by title, case-insensitively, with digit runs
// compared by value ("file2" before "file10"). Ties fall back to the UID.
func SortByTitle(docs []*Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if c := CompareAlphanum(docs[i].Title, docs[j].Title); c != 0 {
			return c < 0
		}
		return docs[i].UID < docs[j].UID
	})
}

// CompareAlphanum compares a and b chunk by chunk, where a chunk is a run
// of digits or a run of anything else.
func CompareAlphanum(a, b string) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)
		if c := compareChunk(ca, cb); c != 0 {
			return c
		}
		a, b = restA, restB
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	}
	return 1
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func nextChunk(s string) (chunk, rest string) {
	r, _ := utf8.DecodeRuneInString(s)
	digits := isDigit(r)
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if isDigit(r) != digits {
			break
		}
		i += size
	}
	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	ra, _ := utf8.DecodeRuneInString(a)
	rb, _ := utf8.DecodeRuneInString(b)
	if isDigit(ra) && isDigit(rb) {
		na := strings.TrimLeft(a, "0")
		nb := strings.TrimLeft(b, "0")
		if len(na) != len(nb) {
			return len(na) - len(nb)
		}
		if c := strings.Compare(na, nb); c != 0 {
			return c
		}
		return len(a) - len(b)
	}
	return compareFold(a, b)
}

func compareFold(a, b string) int {
	for a != "" && b != "" {
		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		la, lb := unicode.ToLower(ra), unicode.ToLower(rb)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		a, b = a[sa:], b[sb:]
	}
	return len(a) - len(b)
}
