package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rowimport/internal/config"
	"github.com/JonMunkholm/rowimport/internal/loader"
)

var loadCmd = &cobra.Command{
	Use:   "load <table> <file>...",
	Short: "Copy files into a PostgreSQL table",
	Long: `Load converts each file and copies its property columns into table with
COPY FROM. Files load concurrently, bounded by IMPORT_MAX_CONCURRENT. The
table may be schema-qualified.

Example:
  rowimport load --offset 1 public.people people-*.csv`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
		defer cancel()

		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		opts, release, err := withSchemaCache(cfg.Import.ReaderOptions())
		if err != nil {
			return err
		}
		defer release()

		l := loader.New(pool, loader.Config{
			Reader:        opts,
			IncludeKeys:   cfg.Import.IncludeKeys,
			MaxConcurrent: cfg.Import.MaxConcurrent,
			MaxWait:       cfg.Import.MaxWaitTime,
		})

		results, err := l.LoadFiles(ctx, args[0], args[1:])
		printResults(cmd, results)
		return err
	},
}

func init() {
	envFlag(loadCmd.Flags(), "include-keys", "IMPORT_INCLUDE_KEYS", "false", "Also copy key columns as text")
	envFlag(loadCmd.Flags(), "concurrency", "IMPORT_MAX_CONCURRENT", "4", "Files loaded in parallel")
	rootCmd.AddCommand(loadCmd)
}

// connect opens and pings a pool sized from cfg.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

func printResults(cmd *cobra.Command, results []*loader.Result) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Error != "" {
			fmt.Fprintf(out, "%s\tFAILED\t%s\n", r.FileName, r.Error)
			continue
		}
		fmt.Fprintf(out, "%s\t%d inserted\t%d skipped\t%s\n", r.FileName, r.Inserted, r.Skipped, r.Duration.Round(time.Millisecond))
		for _, f := range r.FailedRows {
			fmt.Fprintf(cmd.ErrOrStderr(), "  line %d: %s\n", f.LineNumber, f.Reason)
		}
	}
}
