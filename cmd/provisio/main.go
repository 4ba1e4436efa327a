package main

import (
	"os"

	"github.com/provisio-sh/provisio/cmd/provisio/commands"
)

func main() {
	rootCmd := commands.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
