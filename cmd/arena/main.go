package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arena",
		Short: "Multiplayer snake arena server and headless clients",
		Long: `arena runs the shared world of a multiplayer snake game.

Clients simulate their own avatar and report it; the server keeps the
player registry and the food pool, broadcasts every player about 60 times
a second, and replaces eaten food for everyone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		botCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
