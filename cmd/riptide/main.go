package main

import (
	"os"

	"github.com/wonny/riptide/cmd/riptide/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
