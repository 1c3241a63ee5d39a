package main

import (
	"os"

	"github.com/wonny/solarcapture/cmd/capture/commands"
)

// main is the entry point for the capture CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/capture [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
