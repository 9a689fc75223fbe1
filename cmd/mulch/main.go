package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/mulch/cmd/mulch/commands"
	"github.com/dyluth/mulch/internal/printer"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Set version information on root command
	commands.SetVersionInfo(version, commit, date)

	// Errors raised by commands are already printed by the printer package;
	// anything else (bad flags, wrong argument count) comes from cobra.
	if err := commands.Execute(); err != nil {
		var reported *printer.ReportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
