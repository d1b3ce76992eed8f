package errors

// messages is the single table of user-facing texts. Components build errors
// from a code and never hard-code the wording; the CLI and MCP surfaces render
// Message and Suggestion as they are.
var messages = map[string]string{
	ErrCodeConfigInvalid:     "invalid configuration",
	ErrCodeConfigNotFound:    "configuration file not found",
	ErrCodeNothingToSearch:   "there is nothing to search in",
	ErrCodeFolderMissing:     "indexed folders are missing",
	ErrCodeCorruptShard:      "index shard is corrupted and was skipped",
	ErrCodeIOFault:           "an index could not be updated",
	ErrCodeRegistryLocked:    "the shard registry is in use by another process",
	ErrCodeInvalidQuery:      "invalid query",
	ErrCodeInvalidInput:      "invalid input",
	ErrCodeInternal:          "internal error",
	ErrCodeResourceExhausted: "the search ran out of memory",
	ErrCodeSearchFailed:      "search failed",
	ErrCodeShutDown:          "the searcher has been shut down",
}

var suggestions = map[string]string{
	ErrCodeNothingToSearch: "Add a folder with 'shardsearch shards add' or wait until indexing has finished",
	ErrCodeFolderMissing:   "Remove the affected shards or restore their index folders",
	ErrCodeCorruptShard:    "Rebuild the shard from its source folder",
	ErrCodeRegistryLocked:  "Stop the other shardsearch process or use a different --data-dir",
	ErrCodeInvalidQuery:    "Check quotes, parentheses and operators in the query",
	ErrCodeResourceExhausted: "Use a more specific query, avoid leading wildcards, " +
		"or raise engine.memory_budget_mb",
}

// Message returns the catalog text for code.
func Message(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[ErrCodeInternal]
}
