package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"statuswatch/internal/log"
	"statuswatch/internal/sched"
	"statuswatch/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watcher daemon",
	Long: `Starts the update loop on the configured schedule and serves the
observability endpoints until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		resolver, err := buildResolver(ctx, cfg)
		if err != nil {
			return err
		}

		scheduler, err := sched.New(cfg.Tick, func() {
			tick(ctx, resolver)
		})
		if err != nil {
			return err
		}

		go func() {
			if err := web.NewServer(cfg, resolver).Serve(ctx); err != nil {
				log.Error("observability server failed", err)
			}
		}()

		log.Info("statuswatch starting",
			"schedule", cfg.Tick,
			"group", cfg.Group,
			"static_users", len(cfg.Users),
			"alias_domains", len(cfg.AliasDomains),
		)

		scheduler.Run(ctx)

		log.Info("statuswatch exiting")
		return nil
	},
}

// Silence usage output on runtime errors; they are not flag mistakes.
func init() {
	runCmd.SilenceUsage = true
	onceCmd.SilenceUsage = true
}
