package main

import (
	"os"

	"github.com/crestline/perf/cmd/perf/commands"
)

// main is the entry point for the perf CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/perf [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
