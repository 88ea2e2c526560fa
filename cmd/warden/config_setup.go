package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"warden/internal/config"
)

// activeConfig is loaded once per invocation by prepareRun.
var activeConfig = config.Default()

// prepareRun loads the configuration for the path the command works on and
// starts tracing and profiling. version and help need none of it.
func prepareRun(cmd *cobra.Command, args []string) error {
	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}
	start := "."
	if len(args) > 0 {
		start = args[0]
	}
	cfg, err := loadConfig(cmd, start)
	if err != nil {
		return err
	}
	activeConfig = cfg
	if err := setupTracing(cmd, cfg); err != nil {
		return err
	}
	return setupProfiling(cmd)
}

func loadConfig(cmd *cobra.Command, start string) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	if info, err := os.Stat(start); err == nil && !info.IsDir() {
		start = filepath.Dir(start)
	}
	return config.Discover(start)
}
