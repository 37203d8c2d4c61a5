package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "statuswatch",
	Short: "Publishes calendar-derived presence statuses to Zulip",
	Long: `statuswatch watches one or more users' calendars and keeps their
Zulip status in sync: meetings, working location and vacation events are
turned into a status text and emoji, while any status text the user wrote
themselves is preserved.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/statuswatch/config.yaml", "Path to config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
}
