// Package configs embeds the configuration template written by
// `shardsearch config init`.
package configs

import _ "embed"

// UserConfigTemplate is the commented template for the user configuration
// file. Every key it sets holds the built-in default.
//
//go:embed config.example.yaml
var UserConfigTemplate string
