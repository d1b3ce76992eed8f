// Package logging configures the process-wide slog logger for shardsearch.
//
// Logs are JSON records written to a size-rotated file under
// ~/.shardsearch/logs/ and, unless disabled, mirrored to stderr. The
// `serve` command disables the stderr copy because stdout/stderr belong to
// the MCP client. Viewer reads the records back for `shardsearch logs`.
package logging
