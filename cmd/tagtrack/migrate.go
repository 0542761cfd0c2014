// ABOUTME: Migration command for copying location data between storage backends
// ABOUTME: Supports any pair of sqlite, badger, and postgres with safety checks

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/config"
	"github.com/harper/tagtrack/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data between storage backends",
	Long: `Migrate all location data from the currently configured backend to a different backend.

Reads every location from the current backend and writes it to the target
backend in id order. The target assigns new ids. Does NOT update the config
file; verify the migration was successful then update config.json manually.

Examples:
  tagtrack migrate --to badger
  tagtrack migrate --to sqlite --data-dir ~/tagtrack-sqlite
  tagtrack migrate --to postgres --postgres-dsn postgres://localhost/tagtrack
  tagtrack migrate --to badger --force`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var (
	migrateTo      string
	migrateDataDir string
	migrateDSN     string
	migrateForce   bool
)

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "target backend (sqlite, badger, or postgres)")
	migrateCmd.Flags().StringVar(&migrateDataDir, "data-dir", "", "target data directory (defaults to current config data_dir)")
	migrateCmd.Flags().StringVar(&migrateDSN, "postgres-dsn", "", "target postgres connection string (defaults to config postgres_dsn)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "allow writing into a non-empty target")
	_ = migrateCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(migrateCmd)
}

// migrateTarget derives the target config from the current one and the migrate flags.
func migrateTarget(current *config.Config) (*config.Config, error) {
	switch migrateTo {
	case storage.BackendSQLite, storage.BackendBadger, storage.BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid target backend %q: must be \"sqlite\", \"badger\", or \"postgres\"", migrateTo)
	}

	target := *current
	target.Backend = migrateTo
	if migrateDataDir != "" {
		target.DataDir = config.ExpandPath(migrateDataDir)
	}
	if migrateDSN != "" {
		target.PostgresDSN = migrateDSN
	}

	if target.GetBackend() == current.GetBackend() {
		sameLocation := target.GetDataDir() == current.GetDataDir()
		if target.GetBackend() == storage.BackendPostgres {
			sameLocation = target.PostgresDSN == current.PostgresDSN
		}
		if sameLocation {
			return nil, fmt.Errorf("target backend %q is the same as the current backend", migrateTo)
		}
	}
	return &target, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	target, err := migrateTarget(cfg)
	if err != nil {
		return err
	}

	if target.GetBackend() == storage.BackendBadger {
		nonEmpty, err := storage.IsDirNonEmpty(target.BadgerDir())
		if err != nil {
			return fmt.Errorf("check target directory: %w", err)
		}
		if nonEmpty && !migrateForce {
			return fmt.Errorf("target directory %q is not empty; use --force to overwrite", target.BadgerDir())
		}
	}

	dst, err := target.OpenStorage(ctx)
	if err != nil {
		return fmt.Errorf("open target storage (%s): %w", target.GetBackend(), err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: closing target storage: %v\n", cerr)
		}
	}()

	color.New(color.FgYellow).Fprintln(out, "Migrating location data:")
	fmt.Fprintf(out, "  Source:  %s (%s)\n", repo.Backend(), cfg.GetDataDir())
	fmt.Fprintf(out, "  Target:  %s (%s)\n", dst.Backend(), target.GetDataDir())
	fmt.Fprintln(out)

	summary, err := storage.MigrateData(ctx, repo, dst, migrateForce)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().
		Str("source", repo.Backend()).
		Str("target", dst.Backend()).
		Int("locations", summary.Locations).
		Msg("migration complete")

	color.New(color.FgGreen).Fprintln(out, "Migration complete!")
	fmt.Fprintf(out, "  Devices:   %d\n", summary.Devices)
	fmt.Fprintf(out, "  Locations: %d\n", summary.Locations)
	fmt.Fprintln(out)
	color.New(color.FgYellow).Fprintln(out, "Note: config.json was NOT updated. To switch to the new backend, edit:")
	fmt.Fprintf(out, "  %s\n", config.GetConfigPath())
	fmt.Fprintf(out, "  Set \"backend\": %q", migrateTo)
	if migrateDataDir != "" {
		fmt.Fprintf(out, " and \"data_dir\": %q", migrateDataDir)
	}
	fmt.Fprintln(out)

	return nil
}
