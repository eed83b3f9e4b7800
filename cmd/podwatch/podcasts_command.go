package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podwatch/internal/roster"
)

func newPodcastsCommand(ctx *commandContext) *cobra.Command {
	var leanFlag string
	cmd := &cobra.Command{
		Use:   "podcasts",
		Short: "List the podcast roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			r, err := roster.Load(cfg.Paths.RosterFile)
			if err != nil {
				return err
			}
			var filter roster.Lean
			if strings.TrimSpace(leanFlag) != "" {
				if filter, err = roster.ParseLean(leanFlag); err != nil {
					return err
				}
			}

			rows := make([][]string, 0, r.Len())
			for _, p := range r.Podcasts() {
				if filter != "" && p.Lean != filter {
					continue
				}
				rows = append(rows, []string{p.Name, string(p.Lean), p.Host, yesNo(p.HasChannel()), p.FeedURL})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{
				{header: "Podcast"},
				{header: "Lean"},
				{header: "Host", maxWidth: 30},
				{header: "Video"},
				{header: "Feed", maxWidth: 60},
			}, rows))

			counts := r.CountByLean()
			fmt.Fprintf(out, "%d podcasts (left %d, neutral %d, right %d)\n",
				r.Len(), counts[roster.LeanLeft], counts[roster.LeanNeutral], counts[roster.LeanRight])
			return nil
		},
	}
	cmd.Flags().StringVar(&leanFlag, "lean", "", "Only list podcasts with this lean (left, neutral, right)")
	return cmd
}
