package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homebase/internal/config"
	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/objstore"
	"github.com/dukerupert/homebase/internal/server"
	"github.com/dukerupert/homebase/internal/upload"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

// uploadStorage picks the upload backend and the directory served at
// /uploads/, which is empty when images live in a bucket.
func uploadStorage(cfg config.Config) (upload.Backend, string) {
	if cfg.UploadBackend == "s3" {
		return upload.Bucket{
			Client:    objstore.NewClient(cfg.S3),
			Name:      cfg.S3.Bucket,
			PublicURL: cfg.UploadPublicURL,
		}, ""
	}
	return upload.Disk{Root: cfg.UploadDir}, cfg.UploadDir
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, logger := opts.Config, opts.Logger

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	backend, staticDir := uploadStorage(cfg)
	srv := server.New(db, server.Options{
		CORSOrigins:     cfg.CORSAllowedOrigins,
		Uploads:         backend,
		StaticDir:       staticDir,
		UploadRateLimit: cfg.UploadRateLimit,
	}, logger)

	done := make(chan struct{})
	defer close(done)
	go srv.RateLimiter().CleanupLoop(5*time.Minute, done)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("homebase listening", "addr", httpServer.Addr, "db", cfg.DBPath, "uploads", cfg.UploadBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
