// Package main provides the entry point for the riptide CLI.
package main

import (
	"os"

	"github.com/riptide-search/riptide/cmd/riptide/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
