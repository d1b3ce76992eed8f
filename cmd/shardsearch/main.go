// Package main provides the entry point for the shardsearch CLI.
package main

import (
	"os"

	"github.com/xkfz007/shardsearch/cmd/shardsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
