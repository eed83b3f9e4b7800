package main

import (
	"github.com/spf13/cobra"
)

const longDescription = `podwatch fetches the feeds of a roster of political podcasts, resolves the
best available text for each new episode, and stores a structured LLM analysis
of it. Reports read the stored analyses back.`

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:           "podwatch",
		Short:         "Podcast intelligence pipeline",
		Long:          longDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&ctx.configPathFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddGroup(
		&cobra.Group{ID: "pipeline", Title: "Pipeline:"},
		&cobra.Group{ID: "reports", Title: "Reports:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)
	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			root.AddCommand(c)
		}
	}
	add("pipeline", newRunCommand(ctx), newFetchCommand(ctx), newAnalyzeCommand(ctx), newDaemonCommand(ctx))
	add("reports", newPodcastsCommand(ctx), newReportCommand(ctx))
	add("admin", newDBCommand(ctx), newConfigCommand(ctx), newTestNotifyCommand(ctx))
	return root
}
