package main

import (
	"os"

	"github.com/spf13/cobra"

	"aegiswallet/internal/interfaces/cli/migrate"
	"aegiswallet/internal/interfaces/cli/server"
	"aegiswallet/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aegiswallet",
		Short: "AegisWallet - external calendar sync engine",
		Long:  `AegisWallet synchronizes financial events with external calendars, with built-in server, background worker and migration tools.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		worker.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
