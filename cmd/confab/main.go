// Package main provides the confab meeting intelligence CLI.
//
// Usage:
//
//	confab [flags] <command> [args]
//
// Commands:
//
//	serve   - Run the realtime meeting intelligence server
//	export  - Export a meeting's stored artifacts
//	version - Print version information
package main

import (
	"fmt"
	"os"

	"github.com/confabhq/confab/cmd/confab/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
