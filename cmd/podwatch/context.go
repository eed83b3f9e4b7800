package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"podwatch/internal/config"
	"podwatch/internal/logging"
	"podwatch/internal/store"
)

// annotationNoConfig marks commands that must run before a config exists.
const annotationNoConfig = "podwatch/no-config"

// commandContext carries the persistent flags and lazily loaded config shared
// by every subcommand of one invocation.
type commandContext struct {
	configPathFlag string
	logLevelFlag   string

	load       sync.Once
	cfg        *config.Config
	configPath string
	loadErr    error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.load.Do(func() {
		cfg, resolved, _, err := config.Load(strings.TrimSpace(c.configPathFlag))
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.loadErr = err
			return
		}
		c.cfg, c.configPath = cfg, resolved
	})
	return c.cfg, c.loadErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, strings.TrimSpace(c.logLevelFlag))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// withStore opens the episode database for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open episode store: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

func needsConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if _, ok := cmd.Annotations[annotationNoConfig]; ok {
			return false
		}
	}
	return true
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
