package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podwatch/internal/analysis"
	"podwatch/internal/config"
	"podwatch/internal/roster"
	"podwatch/internal/store"
	"podwatch/internal/transcript"
)

const reportTimeLayout = "2006-01-02 15:04"

type reportFlags struct {
	sinceHours int
	lean       string
	limit      int
}

func (f *reportFlags) register(cmd *cobra.Command, defaultHours int, withLean bool) {
	cmd.Flags().IntVar(&f.sinceHours, "since-hours", defaultHours, "Only include episodes published within this many hours (0 for all)")
	cmd.Flags().IntVar(&f.limit, "limit", 50, "Maximum rows")
	if withLean {
		cmd.Flags().StringVar(&f.lean, "lean", "", "Filter by lean (left, neutral, right)")
	}
}

func (f reportFlags) since(now time.Time) time.Time {
	if f.sinceHours <= 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(f.sinceHours) * time.Hour)
}

func (f reportFlags) parsedLean() (roster.Lean, error) {
	if strings.TrimSpace(f.lean) == "" {
		return "", nil
	}
	return roster.ParseLean(f.lean)
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Read-only views over the episode database",
	}
	reportCmd.AddCommand(newReportEpisodesCommand(ctx))
	reportCmd.AddCommand(newReportThreatsCommand(ctx))
	reportCmd.AddCommand(newReportTopicsCommand(ctx))
	reportCmd.AddCommand(newReportAttacksCommand(ctx))
	reportCmd.AddCommand(newReportOpportunitiesCommand(ctx))
	reportCmd.AddCommand(newReportStatsCommand(ctx))
	reportCmd.AddCommand(newReportVolumeCommand(ctx))
	return reportCmd
}

func newReportEpisodesCommand(ctx *commandContext) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "List recent episodes with their analysis status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lean, err := flags.parsedLean()
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				listings, err := st.EpisodesByLean(cmd.Context(), store.EpisodeFilter{
					Range: store.Range{Since: flags.since(time.Now())},
					Lean:  lean,
					Limit: flags.limit,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(listings) == 0 {
					fmt.Fprintln(out, "No episodes found")
					return nil
				}
				rows := make([][]string, 0, len(listings))
				for _, l := range listings {
					rows = append(rows, []string{
						formatPublished(l.PublishedAt),
						l.Podcast,
						string(l.Lean),
						l.Title,
						string(l.Status),
						dashIfEmpty(string(l.ThreatLevel)),
						dashIfEmpty(string(l.SourceKind)),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Published"},
					{header: "Podcast", maxWidth: 28},
					{header: "Lean"},
					{header: "Title", maxWidth: 50},
					{header: "Status"},
					{header: "Threat"},
					{header: "Source"},
				}, rows))
				return nil
			})
		},
	}
	flags.register(cmd, 48, true)
	return cmd
}

func newReportThreatsCommand(ctx *commandContext) *cobra.Command {
	var (
		flags reportFlags
		level string
	)
	cmd := &cobra.Command{
		Use:   "threats",
		Short: "List analyzed episodes by threat level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threat := analysis.ThreatLevel(strings.ToLower(strings.TrimSpace(level)))
			if threat != "" && !slices.Contains(analysis.ThreatLevels, threat) {
				return fmt.Errorf("invalid --level %q (want low, medium, or high)", level)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				items, err := st.AnalysesByThreat(cmd.Context(), store.ThreatFilter{
					Range: store.Range{Since: flags.since(time.Now())},
					Level: threat,
					Limit: flags.limit,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No analyses found")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						string(item.Analysis.ThreatLevel),
						item.Episode.Podcast,
						item.Episode.Title,
						item.Analysis.ThreatRationale,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Threat"},
					{header: "Podcast", maxWidth: 28},
					{header: "Title", maxWidth: 40},
					{header: "Rationale", maxWidth: 60},
				}, rows))
				return nil
			})
		},
	}
	flags.register(cmd, 168, false)
	cmd.Flags().StringVar(&level, "level", "", "Only show this threat level (low, medium, high)")
	return cmd
}

func newReportTopicsCommand(ctx *commandContext) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Count key topics across recent analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				topics, err := st.TopicCounts(cmd.Context(), store.Range{Since: flags.since(time.Now())}, flags.limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(topics) == 0 {
					fmt.Fprintln(out, "No topics found")
					return nil
				}
				rows := make([][]string, 0, len(topics))
				for _, topic := range topics {
					rows = append(rows, []string{topic.Topic, strconv.Itoa(topic.Count)})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Topic", maxWidth: 50},
					{header: "Episodes", right: true},
				}, rows))
				return nil
			})
		},
	}
	flags.register(cmd, 168, false)
	return cmd
}

func newReportAttacksCommand(ctx *commandContext) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "attacks",
		Short: "List political attacks from recent episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lean, err := flags.parsedLean()
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				items, err := st.AttackFeed(cmd.Context(), store.AttackQuery{
					Since: flags.since(time.Now()),
					Lean:  lean,
					Limit: flags.limit,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No attacks found")
					return nil
				}
				var rows [][]string
				for _, item := range items {
					for _, attack := range item.Attacks {
						rows = append(rows, []string{
							item.Podcast,
							string(item.ThreatLevel),
							attack.Target,
							attack.Claim,
						})
					}
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Podcast", maxWidth: 28},
					{header: "Threat"},
					{header: "Target", maxWidth: 24},
					{header: "Claim", maxWidth: 60},
				}, rows))
				return nil
			})
		},
	}
	flags.register(cmd, 168, true)
	return cmd
}

func newReportOpportunitiesCommand(ctx *commandContext) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "List messaging opportunities from recent analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				items, err := st.OpportunityFeed(cmd.Context(), flags.since(time.Now()), flags.limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No opportunities found")
					return nil
				}
				if items[0].Source == store.FromNarrativeThemes {
					fmt.Fprintln(out, "No messaging opportunities recorded; showing narrative themes from left and neutral podcasts")
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{item.Podcast, item.Title, item.Text})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Podcast", maxWidth: 28},
					{header: "Episode", maxWidth: 40},
					{header: "Opportunity", maxWidth: 60},
				}, rows))
				return nil
			})
		},
	}
	flags.register(cmd, 168, false)
	return cmd
}

func newReportStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize database contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				renderStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func renderStats(out io.Writer, stats store.Stats) {
	rows := [][]string{
		{"Podcasts", strconv.Itoa(stats.Podcasts)},
		{"Episodes", strconv.Itoa(stats.Episodes)},
		{"Analyzed", strconv.Itoa(stats.Analyzed)},
		{"Pending", strconv.Itoa(stats.Pending)},
		{"Skipped", strconv.Itoa(stats.Skipped)},
		{"Failed", strconv.Itoa(stats.Failed)},
	}
	for _, lean := range roster.Leans {
		rows = append(rows, []string{"Lean " + string(lean), strconv.Itoa(stats.ByLean[lean])})
	}
	for _, level := range []analysis.ThreatLevel{analysis.ThreatHigh, analysis.ThreatMedium, analysis.ThreatLow} {
		rows = append(rows, []string{"Threat " + string(level), strconv.Itoa(stats.ByThreat[level])})
	}
	sources := make([]string, 0, len(stats.BySource))
	for kind := range stats.BySource {
		sources = append(sources, string(kind))
	}
	slices.Sort(sources)
	for _, kind := range sources {
		rows = append(rows, []string{"Source " + kind, strconv.Itoa(stats.BySource[transcript.SourceKind(kind)])})
	}
	fmt.Fprintln(out, renderTable([]column{
		{header: "Metric"},
		{header: "Count", right: true},
	}, rows))
}

func newReportVolumeCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Show daily episode volume by lean",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				volume, err := st.DailyVolume(cmd.Context(), days, time.Now())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(volume))
				for _, day := range volume {
					rows = append(rows, []string{
						day.Day,
						strconv.Itoa(day.Counts[roster.LeanLeft]),
						strconv.Itoa(day.Counts[roster.LeanNeutral]),
						strconv.Itoa(day.Counts[roster.LeanRight]),
						strconv.Itoa(day.Total()),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					{header: "Day"},
					{header: "Left", right: true},
					{header: "Neutral", right: true},
					{header: "Right", right: true},
					{header: "Total", right: true},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "Number of days to show")
	return cmd
}

func formatPublished(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(reportTimeLayout)
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
