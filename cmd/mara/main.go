// Package main is the entry point for the mara CLI, a multi-agent research
// pipeline: prompt design, framework engineering, iterative analysis and
// synthesis over a rate-guarded model client.
package main

import (
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
