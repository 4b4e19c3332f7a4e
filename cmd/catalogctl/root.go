package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog/backend"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

// app carries the flags shared by every subcommand and the catalog opened
// for the duration of one invocation.
type app struct {
	configPath string
	driver     string
	sqlitePath string
	logLevel   string
	jsonOut    bool

	cfg     *config.Config
	repo    catalog.Repository
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Manage and search a storefront catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to config file (defaults apply when empty)")
	flags.StringVar(&a.driver, "driver", "", "catalog driver override: postgres or sqlite")
	flags.StringVar(&a.sqlitePath, "sqlite-path", "", "sqlite database path override")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")
	flags.BoolVar(&a.jsonOut, "json", false, "output results as JSON")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newAddCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newAutocompleteCmd(a),
		newSearchCmd(a),
		newSubstringCmd(a),
		newPlatformCmd(a),
		newStatsCmd(a),
		newIndexedCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), a.logLevel, "text"))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Catalog.Driver = a.driver
	}
	if a.sqlitePath != "" {
		cfg.Catalog.SQLitePath = a.sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, err := backend.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	a.cfg = cfg
	a.repo = repo
	a.metrics = metrics.New(prometheus.NewRegistry())
	return nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

// engine builds a fresh prefix index from the catalog and returns an engine
// over it together with the build stats.
// index builds a fresh prefix index over the catalog.
func (a *app) index(ctx context.Context) (*indexer.Manager, indexer.Stats, error) {
	manager := indexer.NewManager(a.repo, a.cfg.Index, a.metrics)
	stats, err := manager.Rebuild(ctx)
	if err != nil {
		return nil, indexer.Stats{}, err
	}
	return manager, stats, nil
}

func (a *app) engine(ctx context.Context) (*engine.Engine, indexer.Stats, error) {
	manager, stats, err := a.index(ctx)
	if err != nil {
		return nil, indexer.Stats{}, err
	}
	return engine.New(manager, a.repo, a.cfg.Search, a.metrics), stats, nil
}

func (a *app) printItems(cmd *cobra.Command, items []catalog.Item) error {
	if a.jsonOut {
		return printJSON(cmd, items)
	}
	if len(items) == 0 {
		cmd.Println("No items found.")
		return nil
	}
	for _, item := range items {
		platform := item.Platform
		if platform == "" {
			platform = "-"
		}
		cmd.Printf("  [%d] %s  %.2f %s  (%s)\n", item.ID, item.Name, item.Price, item.Currency, platform)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
