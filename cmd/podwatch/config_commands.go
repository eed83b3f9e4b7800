package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"podwatch/internal/config"
	"podwatch/internal/roster"
	"podwatch/internal/workflow"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

// initTarget resolves where `config init` writes, refusing to clobber an
// existing file unless overwrite is set.
func initTarget(flagPath string, overwrite bool) (string, error) {
	target, err := config.DefaultConfigPath()
	if flagPath = strings.TrimSpace(flagPath); flagPath != "" {
		target, err = config.ExpandPath(flagPath)
	}
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	if overwrite {
		return target, nil
	}
	switch _, err := os.Stat(target); {
	case err == nil:
		return "", fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("check config path: %w", err)
	}
	return target, nil
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath, overwrite)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n"+
				"Set llm.api_key (or export PODWATCH_LLM_API_KEY) and point paths.roster_file at your podcast roster before running podwatch.\n",
				target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file and roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if _, err := os.Stat(ctx.configPath); err != nil {
				fmt.Fprintln(out, "No config file found; using defaults")
			}

			r, err := roster.Load(cfg.Paths.RosterFile)
			if err != nil {
				return fmt.Errorf("load roster: %w", err)
			}
			fmt.Fprintf(out, "Roster: %d podcasts from %s\n", r.Len(), cfg.Paths.RosterFile)
			if strings.TrimSpace(cfg.LLM.APIKey) == "" {
				fmt.Fprintln(out, "Warning: llm.api_key is not set; run and analyze will refuse to start")
			}
			if checkLLM {
				if err := cfg.RequireLLM(); err != nil {
					return err
				}
				client := workflow.NewLLMClient(cfg)
				if err := client.HealthCheck(cmd.Context()); err != nil {
					return fmt.Errorf("llm health check: %w", err)
				}
				fmt.Fprintf(out, "LLM: ok (%s)\n", client.Model())
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Send a trivial request to the configured model")
	return cmd
}
