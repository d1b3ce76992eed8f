// Package version reports the shardsearch build.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in banners and the MCP handshake.
const Name = "shardsearch"

// Version, Commit and Date are injected with
// -ldflags "-X github.com/xkfz007/shardsearch/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is the JSON form printed by `shardsearch version --json`.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String returns a one-line version banner.
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s)",
		Name, Version, Commit, Date, runtime.Version())
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
