// Package cmd holds the rowimport command tree.
package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/rowimport/internal/config"
	"github.com/JonMunkholm/rowimport/internal/importer"
	"github.com/JonMunkholm/rowimport/internal/logging"
	"github.com/JonMunkholm/rowimport/internal/schemacache"
)

// envAnnotation names the environment variable a flag overrides.
const envAnnotation = "env"

// cfg is loaded once per invocation by the root command's pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rowimport",
	Short: "Typed delimited-text row import",
	Long: `rowimport reads delimited text whose header declares column types
("name:type"), converts every data line to typed values and either prints the
records, copies them into PostgreSQL or serves a preview API.

Settings come from the environment (and .env); flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Overload(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				return err
			}
		}

		applyFlagOverrides(cmd.Flags())

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		slog.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading settings")

	envFlag(rootCmd.PersistentFlags(), "delimiter", "ROW_DELIMITER", ",", `Field delimiter (\t and \| escapes accepted)`)
	envFlag(rootCmd.PersistentFlags(), "offset", "ROW_OFFSET", "0", "Number of leading key columns")
	envFlag(rootCmd.PersistentFlags(), "skip-invalid", "IMPORT_SKIP_INVALID", "false", "Skip lines that fail conversion")
	envFlag(rootCmd.PersistentFlags(), "max-line-bytes", "IMPORT_MAX_LINE_BYTES", "1048576", "Longest accepted line")
	envFlag(rootCmd.PersistentFlags(), "log-level", "LOG_LEVEL", "info", "Log level: debug, info, warn, error")
	envFlag(rootCmd.PersistentFlags(), "log-format", "LOG_FORMAT", "text", "Log format: text or json")
}

// envFlag defines a string flag that, when set, overrides env. Values are
// validated by config.Load like any other environment value.
func envFlag(flags *pflag.FlagSet, name, env, def, usage string) {
	flags.String(name, def, usage+" ($"+env+")")
	flags.SetAnnotation(name, envAnnotation, []string{env})
}

// withSchemaCache returns opts sharing a schema cache sized by the config,
// and a func that releases it. A zero size leaves opts unchanged.
func withSchemaCache(opts importer.Options) (importer.Options, func(), error) {
	if cfg.Import.SchemaCacheSize == 0 {
		return opts, func() {}, nil
	}
	cache, err := schemacache.New(schemacache.Config{MaxEntries: int64(cfg.Import.SchemaCacheSize)})
	if err != nil {
		return opts, nil, err
	}
	opts.Schemas = cache
	return opts, cache.Close, nil
}

// applyFlagOverrides copies every flag set on the command line into the
// environment variable it annotates.
func applyFlagOverrides(flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if env, ok := f.Annotations[envAnnotation]; ok && len(env) > 0 {
			os.Setenv(env[0], f.Value.String())
		}
	})
}
