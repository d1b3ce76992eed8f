// Package schema is the document schema shared by the shard builder and the
// searcher: field names, the bleve index mapping, and conversion of stored
// fields back into a Record.
package schema

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names.
const (
	FieldUID      = "uid"
	FieldTitle    = "title"
	FieldFilename = "filename"
	FieldPath     = "path"
	FieldType     = "type"
	FieldAuthor   = "author"
	FieldSize     = "size"
	FieldModified = "modified"
	FieldContent  = "content"
)

// DefaultField is searched by bare query terms.
const DefaultField = FieldContent

// MessageType is the reserved type tag of mail messages. Messages are
// indexed by a different pipeline than files and are always included by a
// type filter.
const MessageType = "message"

// TypeAnalyzerName indexes the whole type tag as one lower-cased term.
const TypeAnalyzerName = "type_analyzer"

// FilenameAnalyzerName splits file names on punctuation, case changes and
// letter/digit boundaries.
const FilenameAnalyzerName = "filename_analyzer"

// StoredFields are requested from the engine for every hit.
var StoredFields = []string{
	FieldUID, FieldTitle, FieldFilename, FieldPath, FieldType,
	FieldAuthor, FieldSize, FieldModified, FieldContent,
}

// NumericFields take numeric range queries.
var NumericFields = map[string]bool{FieldSize: true}

// DateFields take date range queries.
var DateFields = map[string]bool{FieldModified: true}

// KeywordFields are indexed as a single untokenized term. The type tag is
// also lower-cased.
var KeywordFields = map[string]bool{FieldUID: true, FieldType: true}

// NewIndexMapping returns the mapping every shard is built with.
func NewIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	err := im.AddCustomAnalyzer(FilenameAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     FilenameTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add filename analyzer: %w", err)
	}
	err = im.AddCustomAnalyzer(TypeAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add type analyzer: %w", err)
	}

	keywordField := func(analyzer string) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzer
		fm.IncludeTermVectors = false
		return fm
	}
	textField := func(analyzer string) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzer
		return fm
	}

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(FieldUID, keywordField(keyword.Name))
	doc.AddFieldMappingsAt(FieldType, keywordField(TypeAnalyzerName))
	doc.AddFieldMappingsAt(FieldTitle, textField(standard.Name))
	doc.AddFieldMappingsAt(FieldAuthor, textField(standard.Name))
	doc.AddFieldMappingsAt(FieldFilename, textField(FilenameAnalyzerName))
	doc.AddFieldMappingsAt(FieldPath, textField(FilenameAnalyzerName))
	doc.AddFieldMappingsAt(FieldContent, textField(standard.Name))
	doc.AddFieldMappingsAt(FieldSize, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(FieldModified, bleve.NewDateTimeFieldMapping())

	im.DefaultMapping = doc
	return im, nil
}

// Record is one document as stored in a shard.
type Record struct {
	UID      string
	Title    string
	Filename string
	// Path is slash-separated and relative to the shard root.
	Path     string
	Type     string
	Author   string
	Size     int64
	Modified time.Time
	Content  string
}

// Fields converts r into the map indexed by the shard builder.
func (r Record) Fields() map[string]interface{} {
	m := map[string]interface{}{
		FieldUID:      r.UID,
		FieldFilename: r.Filename,
		FieldPath:     r.Path,
		FieldType:     r.Type,
		FieldSize:     float64(r.Size),
		FieldContent:  r.Content,
	}
	if r.Title != "" {
		m[FieldTitle] = r.Title
	}
	if r.Author != "" {
		m[FieldAuthor] = r.Author
	}
	if !r.Modified.IsZero() {
		m[FieldModified] = r.Modified.UTC()
	}
	return m
}

// RecordFromFields rebuilds a Record from the stored fields of a hit.
// Missing or mistyped fields are left zero.
func RecordFromFields(fields map[string]interface{}) Record {
	return Record{
		UID:      stringField(fields[FieldUID]),
		Title:    stringField(fields[FieldTitle]),
		Filename: stringField(fields[FieldFilename]),
		Path:     stringField(fields[FieldPath]),
		Type:     stringField(fields[FieldType]),
		Author:   stringField(fields[FieldAuthor]),
		Size:     int64(numberField(fields[FieldSize])),
		Modified: timeField(fields[FieldModified]),
		Content:  stringField(fields[FieldContent]),
	}
}

// DisplayTitle is the title, or the file name for untitled documents.
func (r Record) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Filename
}

// stringField handles multi-valued fields by taking the first value.
func stringField(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []interface{}:
		if len(x) > 0 {
			return stringField(x[0])
		}
	}
	return ""
}

func numberField(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case []interface{}:
		if len(x) > 0 {
			return numberField(x[0])
		}
	}
	return 0
}

func timeField(v interface{}) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, x); err == nil {
				return t
			}
		}
	case []interface{}:
		if len(x) > 0 {
			return timeField(x[0])
		}
	}
	return time.Time{}
}
