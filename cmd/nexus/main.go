package main

import (
	"os"

	"github.com/nexus-finance/platform/cmd/nexus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
