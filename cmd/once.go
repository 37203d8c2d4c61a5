package cmd

import (
	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single update pass and exit",
	Long: `Resolves all configured identities, updates each status once and
exits. Useful for cron-based deployments and for debugging the derivation
without starting the daemon.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		resolver, err := buildResolver(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		tick(cmd.Context(), resolver)
		return nil
	},
}
