package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexMapping_Validates(t *testing.T) {
	im, err := NewIndexMapping()

	require.NoError(t, err)
	require.NoError(t, im.Validate())
	assert.Equal(t, "standard", im.DefaultAnalyzer)
}

func TestRecordFromFields_ConvertsStoredTypes(t *testing.T) {
	// Given: stored fields as the engine returns them
	fields := map[string]interface{}{
		FieldUID:      "docs/a/report.pdf",
		FieldTitle:    "Report",
		FieldFilename: "report.pdf",
		FieldPath:     "a/report.pdf",
		FieldType:     "pdf",
		FieldAuthor:   []interface{}{"Ann", "Bob"},
		FieldSize:     float64(1234),
		FieldModified: "2009-03-01T10:00:00Z",
		FieldContent:  "hello",
	}

	// When: converting
	r := RecordFromFields(fields)

	// Then: every field is typed
	assert.Equal(t, "docs/a/report.pdf", r.UID)
	assert.Equal(t, "Ann", r.Author)
	assert.Equal(t, int64(1234), r.Size)
	assert.Equal(t, time.Date(2009, 3, 1, 10, 0, 0, 0, time.UTC), r.Modified.UTC())
	assert.Equal(t, "Report", r.DisplayTitle())
}

func TestRecord_DisplayTitle_FallsBackToFilename(t *testing.T) {
	assert.Equal(t, "x.txt", Record{Filename: "x.txt"}.DisplayTitle())
}

func TestRecord_Fields_OmitsEmptyOptionalFields(t *testing.T) {
	m := Record{UID: "s/x", Filename: "x", Size: 5}.Fields()

	assert.NotContains(t, m, FieldTitle)
	assert.NotContains(t, m, FieldAuthor)
	assert.NotContains(t, m, FieldModified)
	assert.Equal(t, float64(5), m[FieldSize])
}

func TestRecordFromFields_ToleratesMissingFields(t *testing.T) {
	r := RecordFromFields(map[string]interface{}{FieldSize: "oops"})
	assert.Zero(t, r.Size)
	assert.True(t, r.Modified.IsZero())
}

func TestFilenameTokenizer_Splits(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"AnnualReport_2009-final.PDF", []string{"Annual", "Report", "2009", "final", "PDF"}},
		{"HTMLPage.html", []string{"HTML", "Page", "html"}},
		{"notes", []string{"notes"}},
		{"v2beta", []string{"v", "2", "beta"}},
		{"Übersicht März.txt", []string{"Übersicht", "März", "txt"}},
		{"", nil},
	}

	tok := &filenameTokenizer{}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			stream := tok.Tokenize([]byte(tt.in))

			var got []string
			for i, token := range stream {
				got = append(got, string(token.Term))
				assert.Equal(t, i+1, token.Position)
				assert.Equal(t, string(token.Term), tt.in[token.Start:token.End])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
