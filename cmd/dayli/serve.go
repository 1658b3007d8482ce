package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayli-app/dayli"
	"github.com/dayli-app/dayli/authtoken"
	"github.com/dayli-app/dayli/config"
	"github.com/dayli-app/dayli/gateway"
	dhttp "github.com/dayli-app/dayli/http"
	"github.com/dayli-app/dayli/objectstore"
	"github.com/dayli-app/dayli/ratelimit"
	"github.com/dayli-app/dayli/records"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the Dayli HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5810, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	verifier, err := authtoken.NewVerifier(cfg.Auth.Tokens)
	if err != nil {
		return fmt.Errorf("load auth tokens: %w", err)
	}

	if !cfg.RemoteEnabled() {
		return errors.New("store.endpoint is required to issue upload credentials")
	}

	store, err := objectstore.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("create object store client: %w", err)
	}
	store.EnsureBucket(ctx)
	slog.Info("object store ready", "endpoint", cfg.Store.Endpoint, "bucket", store.Bucket())

	limiter := ratelimit.New(nil)
	if cfg.RateLimit.RedisURL != "" {
		rdb, redisErr := ratelimit.Connect(ctx, cfg.RateLimit.RedisURL)
		if redisErr != nil {
			slog.Warn("redis unavailable, rate limiting disabled", "err", redisErr)
		} else {
			defer func() { _ = rdb.Close() }()
			limiter = ratelimit.New(rdb,
				ratelimit.WithLimits(cfg.RateLimit.UploadLimit, cfg.RateLimit.DeleteLimit),
				ratelimit.WithWindow(cfg.RateLimit.Window),
			)
			slog.Info("rate limiting enabled",
				"upload_limit", cfg.RateLimit.UploadLimit,
				"delete_limit", cfg.RateLimit.DeleteLimit,
				"window", cfg.RateLimit.Window)
		}
	}

	var images dayli.ImageRepo
	if cfg.RecordsEnabled() {
		repo, cleanup, recordsErr := records.Connect(ctx, cfg.Records)
		if recordsErr != nil {
			return fmt.Errorf("connect records backend: %w", recordsErr)
		}
		defer cleanup()
		images = repo
		slog.Info("image records enabled", "type", cfg.Records.Type)
	}

	signer := dayli.NewSigner(dayli.Credentials{
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
	}, cfg.Store.Region, "s3")

	gw, err := gateway.New(verifier, limiter, store, signer,
		gateway.WithPolicyTTL(cfg.Server.PolicyTTL),
		gateway.WithMaxFileSize(cfg.Server.MaxFileSize),
	)
	if err != nil {
		return fmt.Errorf("create upload gateway: %w", err)
	}

	handlerConfig := dhttp.HandlerConfig{
		CORS: cfg.CORS,
	}
	handler := dhttp.NewHandler(&handlerConfig, gw, verifier, images)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
