package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spinecat/spinecat/internal/config"
	"github.com/spinecat/spinecat/internal/handlers"
	"github.com/spinecat/spinecat/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shelf identification web server",
		Long: `Starts the spinecat HTTP API.

The API accepts raw spine text for matching, and shelf photographs for
asynchronous identification jobs that OCR each spine and match it
against Open Library.`,
		Example: `  # Start server on the configured address (default :8080)
  spinecat serve

  # Start server on a custom address
  spinecat serve --addr :3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			handler := handlers.New(pipeline.New(cfg))

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/match", handler.HandleMatch)
			mux.HandleFunc("/api/shelves", handler.HandleShelfUpload)
			mux.HandleFunc("/api/jobs", handler.HandleJobs)
			mux.HandleFunc("/api/jobs/", handler.HandleJobDetail)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			server := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Spinecat API available", "addr", cfg.Server.Addr, "url", "http://localhost"+cfg.Server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides config)")

	return cmd
}
