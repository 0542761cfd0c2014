// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, sets up logging and metrics, and opens the storage backend

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/config"
	"github.com/harper/tagtrack/internal/locations"
	"github.com/harper/tagtrack/internal/logging"
	"github.com/harper/tagtrack/internal/metrics"
	"github.com/harper/tagtrack/internal/storage"
)

var (
	configPath  string
	backendFlag string
	dataDirFlag string
)

var (
	cfg      *config.Config
	repo     storage.Repository
	logger   *logging.Logger
	recorder *metrics.Recorder
	service  *locations.Service
	display  = time.UTC
)

var rootCmd = &cobra.Command{
	Use:   "tagtrack",
	Short: "Location tracking for BLE-tagged devices",
	Long: `
████████╗ █████╗  ██████╗ ████████╗██████╗  █████╗  ██████╗██╗  ██╗
╚══██╔══╝██╔══██╗██╔════╝ ╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝
   ██║   ███████║██║  ███╗   ██║   ██████╔╝███████║██║     █████╔╝
   ██║   ██╔══██║██║   ██║   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗
   ██║   ██║  ██║╚██████╔╝   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗
   ╚═╝   ╚═╝  ╚═╝ ╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝

         Collect and query BLE tag location reports

Examples:
  tagtrack serve
  tagtrack add tag-harper --lat 41.8781 --lng -87.6298 --rssi -70
  tagtrack current tag-harper
  tagtrack timeline tag-harper
  tagtrack list`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/tagtrack/config.json)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend override (sqlite, badger, postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory override")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	display, err = cfg.DisplayLocation()
	if err != nil {
		return err
	}

	logger, err = logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	repo, err = cfg.OpenStorage(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to open storage (%s): %w", cfg.GetBackend(), err)
	}
	logger.Debug().Str("backend", repo.Backend()).Msg("storage opened")

	recorder = metrics.New()
	service = locations.NewService(repo, logger.Logger, locations.WithMetrics(recorder))
	return nil
}

func teardown() error {
	var err error
	if repo != nil {
		err = repo.Close()
		repo = nil
	}
	if logger != nil {
		if cerr := logger.Close(); err == nil {
			err = cerr
		}
		logger = nil
	}
	return err
}

// commandContext returns the command's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// confirm asks a yes/no question on in and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// writeOutput writes data to path, or to out when path is empty.
func writeOutput(out io.Writer, path string, data []byte, what string) error {
	if path == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
		return fmt.Errorf("failed to write file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s to %s\n", what, path)
	return nil
}
