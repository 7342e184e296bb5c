// Package main provides the Lambda entry point for the baby generator API.
//
// It serves the same handlers as cmd/baby-web behind API Gateway through the
// HTTP adapter, so local and deployed behavior stay identical.
//
// Security:
//   - Origin-verify middleware blocks direct API Gateway access (CloudFront-only)
//   - The Replicate API token is loaded from SSM Parameter Store at cold start
//     when not supplied via environment
//
// Endpoints:
//
//	GET  /api/health    — health check (no auth required)
//	POST /api/generate  — generate a baby portrait from two parent photo URLs
package main

import (
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/fpang/ai-baby-generator/internal/api"
	"github.com/fpang/ai-baby-generator/internal/boot"
	"github.com/fpang/ai-baby-generator/internal/config"
	"github.com/fpang/ai-baby-generator/internal/logging"
	"github.com/fpang/ai-baby-generator/internal/pipeline"
	"github.com/fpang/ai-baby-generator/internal/replicate"
)

// Wiring initialized at cold start.
var (
	cfg       *config.Config
	generator *pipeline.Pipeline
)

func init() {
	initStart := time.Now()
	logging.Init()

	cfg = config.Load()
	awsCfg := boot.LoadAWS()
	cfg.ReplicateToken = boot.ResolveReplicateToken(awsCfg, cfg.ReplicateToken)
	store := boot.InitHosting(awsCfg, cfg.BabyBucket, cfg.HostingBaseURL)

	models := pipeline.DefaultModels()
	jobs := replicate.NewClient(replicate.Options{
		Token:        cfg.ReplicateToken,
		BaseURL:      cfg.ReplicateBaseURL,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
	})
	generator = pipeline.New(pipeline.Options{
		Jobs:             jobs,
		Store:            store,
		Models:           models,
		ClothingMaskURL:  cfg.ClothingMaskURL,
		AlternateMaskURL: cfg.AlternateMaskURL,
	})

	logging.Startup("baby-lambda").
		Version(commitHash, buildTime).
		Resource("s3", "babyBucket", cfg.BabyBucket).
		Resource("ssm", "replicateTokenParam", boot.TokenParamPath()).
		Resource("model", "dadPreprocess", models.DadPreprocess).
		Resource("model", "babyGeneration", models.BabyGeneration).
		Resource("model", "nsfwCheck", models.NSFWCheck).
		Resource("model", "inpainting", models.Inpainting).
		Feature("replicateConfigured", jobs.IsConfigured()).
		Feature("s3Hosting", cfg.BabyBucket != "" && cfg.HostingBaseURL != "").
		Feature("originVerify", cfg.OriginVerifySecret != "").
		Setting("pollInterval", cfg.PollInterval.String()).
		Setting("pollTimeout", cfg.PollTimeout.String()).
		Emit(initStart)
}

func main() {
	mux := http.NewServeMux()

	mux.Handle("/api/health", api.HealthHandler())
	mux.Handle("/api/generate", api.NewHandler(generator))

	handler := api.WithCORS(api.WithRequestMetrics(api.WithOriginVerify(cfg.OriginVerifySecret, mux)))

	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
