package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"podwatch/internal/config"
	"podwatch/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Episode database utilities",
	}
	dbCmd.AddCommand(newDBSeedCommand(ctx))
	dbCmd.AddCommand(newDBInfoCommand(ctx))
	return dbCmd
}

func newDBSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.sql>",
		Short: "Load a SQL seed script into an empty database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			script, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				loaded, count, err := st.Seed(cmd.Context(), string(script))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !loaded {
					fmt.Fprintf(out, "Database already has %d episodes; seed skipped\n", count)
					return nil
				}
				fmt.Fprintf(out, "Seeded database with %d episodes\n", count)
				return nil
			})
		},
	}
}

func newDBInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database location and schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				version, err := st.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", st.Path())
				fmt.Fprintf(out, "Schema version: %s\n", version)
				return nil
			})
		},
	}
}
