package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func titles(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Title
	}
	return out
}

func TestSortByTitle_CaseInsensitiveAlphanumeric(t *testing.T) {
	// Given: titles in arbitrary order and case
	in := []*Document{
		{UID: "s/3", Title: "Cherry2"},
		{UID: "s/1", Title: "apple"},
		{UID: "s/2", Title: "Banana"},
	}

	// When: sorting
	SortByTitle(in)

	// Then: case is ignored
	assert.Equal(t, []string{"apple", "Banana", "Cherry2"}, titles(in))
}

func TestSortByTitle_NumbersByValue(t *testing.T) {
	in := []*Document{
		{UID: "s/a", Title: "file10"},
		{UID: "s/b", Title: "file2"},
		{UID: "s/c", Title: "file1"},
		{UID: "s/d", Title: "File02"},
		{UID: "s/e", Title: "file"},
	}

	SortByTitle(in)

	assert.Equal(t, []string{"file", "file1", "file2", "File02", "file10"}, titles(in))
}

func TestSortByTitle_TiesByUID(t *testing.T) {
	in := []*Document{{UID: "s/b", Title: "same"}, {UID: "s/a", Title: "Same"}}

	SortByTitle(in)

	assert.Equal(t, "s/a", in[0].UID)
}

func TestCompareAlphanum(t *testing.T) {
	assert.Zero(t, CompareAlphanum("abc", "ABC"))
	assert.Negative(t, CompareAlphanum("a", "b"))
	assert.Positive(t, CompareAlphanum("b", "A"))
	assert.Negative(t, CompareAlphanum("x9", "x10"))
	assert.Negative(t, CompareAlphanum("", "a"))
	assert.Negative(t, CompareAlphanum("2", "a"))
}
