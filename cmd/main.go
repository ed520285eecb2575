package main

import (
	"os"

	"github.com/exec/portscope/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}