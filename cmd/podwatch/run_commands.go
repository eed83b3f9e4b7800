package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"podwatch/internal/config"
	"podwatch/internal/store"
	"podwatch/internal/workflow"
)

type pipelineFlags struct {
	sinceHours  int
	maxEpisodes int
	workers     int
	retryFailed bool
	reanalyze   bool
}

func (f pipelineFlags) options(fetch, analyze bool) (workflow.RunOptions, error) {
	if f.sinceHours < 0 || f.maxEpisodes < 0 || f.workers < 0 {
		return workflow.RunOptions{}, errors.New("--since-hours, --max-episodes, and --workers must not be negative")
	}
	if f.workers > 32 {
		return workflow.RunOptions{}, errors.New("--workers must be at most 32")
	}
	return workflow.RunOptions{
		Window:      time.Duration(f.sinceHours) * time.Hour,
		Fetch:       fetch,
		Analyze:     analyze,
		MaxEpisodes: f.maxEpisodes,
		Workers:     f.workers,
		RetryFailed: f.retryFailed,
		Reanalyze:   f.reanalyze,
	}, nil
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return newPipelineCommand(ctx, "run", "Fetch feeds and analyze new episodes", true, true)
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return newPipelineCommand(ctx, "fetch", "Fetch feeds and record new episodes without analysis", true, false)
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return newPipelineCommand(ctx, "analyze", "Analyze pending episodes already in the database", false, true)
}

func newPipelineCommand(ctx *commandContext, use, short string, fetch, analyze bool) *cobra.Command {
	var flags pipelineFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(fetch, analyze)
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if analyze {
					if err := cfg.RequireLLM(); err != nil {
						return err
					}
				}
				orchestrator, err := workflow.NewFromConfig(cfg, st, logger)
				if err != nil {
					return err
				}
				summary, err := orchestrator.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				renderRunSummary(cmd.OutOrStdout(), summary)
				if summary.Canceled {
					return cmd.Context().Err()
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&flags.sinceHours, "since-hours", 0, "Lookback window in hours (default feeds.lookback_hours)")
	if analyze {
		cmd.Flags().IntVar(&flags.maxEpisodes, "max-episodes", 0, "Maximum episodes to analyze this run (default pipeline.max_episodes)")
		cmd.Flags().BoolVar(&flags.retryFailed, "retry-failed", false, "Include skipped and failed episodes")
		cmd.Flags().BoolVar(&flags.reanalyze, "reanalyze", false, "Re-run analysis on already analyzed episodes in the window")
	}
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent workers (default pipeline.workers)")
	return cmd
}
