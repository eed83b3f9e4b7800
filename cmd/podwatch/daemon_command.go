package main

import (
	"time"

	"github.com/spf13/cobra"

	"podwatch/internal/config"
	"podwatch/internal/daemon"
	"podwatch/internal/notifications"
	"podwatch/internal/store"
	"podwatch/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var intervalMinutes int
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if err := cfg.RequireLLM(); err != nil {
					return err
				}
				orchestrator, err := workflow.NewFromConfig(cfg, st, logger)
				if err != nil {
					return err
				}
				var opts []daemon.Option
				if intervalMinutes > 0 {
					opts = append(opts, daemon.WithInterval(time.Duration(intervalMinutes)*time.Minute))
				}
				d, err := daemon.New(cfg, orchestrator, notifications.NewService(cfg), logger, opts...)
				if err != nil {
					return err
				}
				return d.Serve(cmd.Context())
			})
		},
	}
	cmd.Flags().IntVar(&intervalMinutes, "interval-minutes", 0, "Override daemon.interval_minutes")
	return cmd
}
