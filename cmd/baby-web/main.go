// Package main provides a local development server for the baby generator
// API. It mounts the same handlers as the Lambda entry point, so a frontend
// can be pointed at localhost with identical behavior.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-baby-generator/internal/api"
	"github.com/fpang/ai-baby-generator/internal/boot"
	"github.com/fpang/ai-baby-generator/internal/config"
	"github.com/fpang/ai-baby-generator/internal/hosting"
	"github.com/fpang/ai-baby-generator/internal/logging"
	"github.com/fpang/ai-baby-generator/internal/pipeline"
	"github.com/fpang/ai-baby-generator/internal/replicate"
)

var portFlag int

var rootCmd = &cobra.Command{
	Use:   "baby-web",
	Short: "Local server for the baby generator API",
	Long: `Baby Web starts a local server exposing the baby generator API.
It serves the same endpoints as the deployed Lambda, so a frontend can be
pointed at localhost during development.

Configuration is read from the environment (a .env file is honored):
REPLICATE_API_TOKEN enables generation; BABY_BUCKET_NAME plus
HOSTING_BASE_URL enable S3 hosting of finished portraits.

Examples:
  baby-web
  baby-web --port 9090`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	logging.Init()

	cfg := config.Load()
	if cfg.ReplicateToken == "" {
		log.Warn().Msg("REPLICATE_API_TOKEN not set — generation requests will fail")
	}

	// AWS is only touched when S3 hosting is configured, so the server runs
	// without credentials in local development.
	var store hosting.Store = hosting.PassthroughStore{}
	if cfg.BabyBucket != "" && cfg.HostingBaseURL != "" {
		store = boot.InitHosting(boot.LoadAWS(), cfg.BabyBucket, cfg.HostingBaseURL)
	} else {
		log.Info().Msg("S3 hosting not configured — portraits served from remote artifact URLs")
	}

	generator := pipeline.New(pipeline.Options{
		Jobs: replicate.NewClient(replicate.Options{
			Token:        cfg.ReplicateToken,
			BaseURL:      cfg.ReplicateBaseURL,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		}),
		Store:            store,
		Models:           pipeline.DefaultModels(),
		ClothingMaskURL:  cfg.ClothingMaskURL,
		AlternateMaskURL: cfg.AlternateMaskURL,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/health", api.HealthHandler())
	mux.Handle("/api/generate", api.NewHandler(generator))

	handler := api.WithRequestLogging(api.WithCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// A run can chain several multi-minute Replicate jobs before the
		// response is written.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Msg("Starting baby generator server")
	fmt.Printf("\n  Baby Generator API: http://localhost:%d\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
