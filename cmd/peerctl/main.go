// peerctl seeds and inspects a peerscore store.
//
// Usage:
//
//	peerctl seed [--file fixture.yaml | --participants N --raters N] [--show]
//	peerctl results [--event ID] [--sort name|overall|anomalies|raters] [--desc] [--format table|csv|markdown]
//	peerctl flags [--target ID] [--all] [--limit N] [--format table|csv|markdown]
//	peerctl purge --yes
//
// The store is taken from the PEERSCORE_* configuration; --db switches to a
// SQLite file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/config"
	"github.com/okian/peerscore/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	db       string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var rf rootFlags
	root := &cobra.Command{
		Use:           "peerctl",
		Short:         "Seed and inspect peer evaluation results",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rf.db, "db", "", "SQLite database file (overrides PEERSCORE_STORE_DRIVER)")
	pf.StringVar(&rf.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newSeedCmd(&rf))
	root.AddCommand(newResultsCmd(&rf))
	root.AddCommand(newFlagsCmd(&rf))
	root.AddCommand(newPurgeCmd(&rf))
	return root
}

// openService loads configuration, applies the root flags and starts a
// service over the configured store. Callers must Stop it.
func openService(ctx context.Context, rf *rootFlags) (*service.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rf.db != "" {
		cfg.StoreDriver, cfg.DatabasePath = config.DriverSQLite, rf.db
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(os.Stderr)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(rf.logLevel); err != nil {
		return nil, err
	}

	svc, err := service.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		svc.Stop()
		return nil, err
	}
	return svc, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
