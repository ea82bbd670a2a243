package main

import (
	"os"

	"github.com/faithdive/faithdive/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
