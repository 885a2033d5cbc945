package main

import (
	"os"

	"github.com/semlayer/semlayer/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
