package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rowimport/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the preview API",
	Long: `Serve starts an HTTP server that converts posted samples without a
database:

  GET  /api/types     column type tags
  POST /api/preview   header plus sample lines in the body`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, release, err := withSchemaCache(cfg.Import.ReaderOptions())
		if err != nil {
			return err
		}
		defer release()

		server := web.NewServer(web.Options{
			Defaults:       defaults,
			APIKeys:        cfg.Server.Keys(),
			TrustedProxies: cfg.Server.Proxies(),
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			MaxRows:        cfg.Server.MaxRows,
			RequestTimeout: cfg.Server.RequestTimeout,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start(cfg.Server.Addr()) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	envFlag(serveCmd.Flags(), "host", "SERVER_HOST", "127.0.0.1", "Interface to listen on")
	envFlag(serveCmd.Flags(), "port", "SERVER_PORT", "8080", "Port to listen on")
	envFlag(serveCmd.Flags(), "shape", "ROW_SHAPE", "map", "Default record shape: map or array")
	rootCmd.AddCommand(serveCmd)
}
