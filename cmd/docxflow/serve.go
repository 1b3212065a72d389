package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/docxflow/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		conv, closeFn, err := newConverter(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		srv := &http.Server{
			Addr: viper.GetString("addr"),
			Handler: api.NewServer(conv, slog.Default(), api.Config{
				APIKey:         viper.GetString("api-key"),
				MaxUploadBytes: viper.GetInt64("max-upload-bytes"),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("listening", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("api-key", "", "bearer key required on /api routes (default: none)")
	serveCmd.Flags().Int64("max-upload-bytes", api.DefaultMaxUploadBytes, "largest accepted upload")
	for _, name := range []string{"addr", "api-key", "max-upload-bytes"} {
		_ = viper.BindPFlag(name, serveCmd.Flags().Lookup(name))
	}

	rootCmd.AddCommand(serveCmd)
}
