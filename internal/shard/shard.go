// Package shard defines the unit the searcher unions: one full-text index
// built for one root folder, plus the deletion hand-off between the registry
// and the searcher.
package shard

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// UIDSeparator separates the shard ID from the relative path in a document
// UID ("<shardID>/<relativePath>").
const UIDSeparator = "/"

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Config is the per-shard configuration recorded when the shard was built.
type Config struct {
	// DisplayName is shown instead of the root folder name when set.
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`

	// SnippetLength is the number of runes of stored content used as the
	// snippet when the engine returns no highlight fragments. 0 means the
	// searcher default.
	SnippetLength int `yaml:"snippet_length,omitempty" json:"snippet_length,omitempty"`
}

// Shard describes one registered index. It is immutable once registered.
type Shard struct {
	ID        string
	RootPath  string
	IndexPath string
	Config    Config
	AddedAt   time.Time
}

// Name returns the display name, falling back to the root folder name.
func (s *Shard) Name() string {
	if s.Config.DisplayName != "" {
		return s.Config.DisplayName
	}
	return filepath.Base(s.RootPath)
}

// UIDPrefix is the prefix shared by the UIDs of every document in the shard.
func (s *Shard) UIDPrefix() string {
	return s.ID + UIDSeparator
}

// UID builds the document UID for a slash-separated relative path.
func (s *Shard) UID(relPath string) string {
	return s.UIDPrefix() + strings.TrimPrefix(filepath.ToSlash(relPath), "/")
}

// Validate checks the fields a registry needs before accepting the shard.
func (s *Shard) Validate() error {
	if !ValidID(s.ID) {
		return fmt.Errorf("invalid shard id %q", s.ID)
	}
	if s.IndexPath == "" {
		return fmt.Errorf("shard %s: index path is empty", s.ID)
	}
	if s.RootPath != "" && !filepath.IsAbs(s.RootPath) {
		return fmt.Errorf("shard %s: root path must be absolute, got %s", s.ID, s.RootPath)
	}
	if s.Config.SnippetLength < 0 {
		return fmt.Errorf("shard %s: snippet length must be non-negative", s.ID)
	}
	return nil
}

// ValidID reports whether id can be used as a shard ID. IDs never contain
// the UID separator, so prefix filters on UIDs can't match across shards.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// SplitUID splits a document UID into shard ID and relative path.
func SplitUID(uid string) (shardID, relPath string, ok bool) {
	shardID, relPath, ok = strings.Cut(uid, UIDSeparator)
	if !ok || shardID == "" {
		return "", "", false
	}
	return shardID, relPath, true
}
