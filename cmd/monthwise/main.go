package main

import (
	"os"

	"github.com/Staniell/MonthWise/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
