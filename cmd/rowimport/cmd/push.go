package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rowimport/internal/config"
	"github.com/JonMunkholm/rowimport/internal/encode"
	"github.com/JonMunkholm/rowimport/internal/importer"
	"github.com/JonMunkholm/rowimport/internal/sink"
)

var pushCmd = &cobra.Command{
	Use:   "push <file> <list>",
	Short: "Append typed records to a Redis list",
	Long: `Push converts a delimited file ("-" for stdin) and appends each record,
encoded with --format, as one element of a Redis list.

Example:
  rowimport push --format msgpack --redis-url redis://cache:6379/1 people.csv people`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := encode.ParseFormat(cfg.Import.Format)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
		defer cancel()

		rdb, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		in, size, closeIn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeIn()

		list, err := sink.NewRedisList(ctx, rdb, args[1], format, cfg.Redis.BatchSize)
		if err != nil {
			return err
		}
		return push(in, size, list, cfg.Import.ReaderOptions())
	},
}

func init() {
	envFlag(pushCmd.Flags(), "shape", "ROW_SHAPE", "map", "Record shape: map or array")
	envFlag(pushCmd.Flags(), "format", "OUTPUT_FORMAT", "json", "Element encoding: json, msgpack, cbor or protobuf")
	envFlag(pushCmd.Flags(), "redis-url", "REDIS_URL", "redis://localhost:6379/0", "Redis connection URL")
	envFlag(pushCmd.Flags(), "batch-size", "REDIS_BATCH_SIZE", "500", "Records per RPUSH")
	rootCmd.AddCommand(pushCmd)
}

// push appends every record of in to list and flushes the final batch.
// When conversion stops early, records converted before the failing line
// are still flushed and the partial count is logged.
func push(in io.Reader, size int64, list *sink.RedisList, opts importer.Options) error {
	rd, err := convertTo(in, size, opts, list)
	if err != nil {
		if ferr := list.Flush(); ferr != nil {
			err = errors.Join(err, ferr)
		}
		slog.Error("push stopped early", "pushed", list.Pushed(), "error", err)
		return err
	}
	if err := list.Flush(); err != nil {
		return err
	}
	slog.Info("push complete",
		"rows", rd.Rows(),
		"pushed", list.Pushed(),
		"skipped", len(rd.Failed()),
	)
	return nil
}

// connectRedis opens a client for rc.URL and checks it answers.
func connectRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(rc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return rdb, nil
}
