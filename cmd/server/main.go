package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "staybook",
	Short: "Staybook vacation rental API",
	Long: `Staybook serves the listing, booking, messaging and review API.

Commands:
  serve    - run the HTTP API
  worker   - consume booking and message events
  init-db  - create the application tables`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, workerCmd, initDBCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
