package main

import (
	"os"

	"fintrack/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version, nil).Execute(); err != nil {
		os.Exit(1)
	}
}
