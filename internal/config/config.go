package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-baby-generator/internal/replicate"
)

// Config carries the runtime configuration shared by the baby-generator
// binaries (Lambda, local web server, CLI). Load never fails: every field is
// optional at this layer, and each entry point decides which ones it
// requires.
type Config struct {
	// ReplicateToken authenticates requests to the Replicate API. May be
	// empty here and resolved from SSM during Lambda cold start.
	ReplicateToken string

	// ReplicateBaseURL is the API root. Overridable for tests and
	// self-hosted gateways.
	ReplicateBaseURL string

	// PollInterval and PollTimeout control the prediction polling loop.
	PollInterval time.Duration
	PollTimeout  time.Duration

	// BabyBucket is the S3 bucket generated portraits are uploaded to.
	// Empty disables S3 hosting; the raw model output URL is returned
	// instead.
	BabyBucket string

	// HostingBaseURL is the public URL prefix for hosted objects, e.g. a
	// CloudFront distribution in front of BabyBucket.
	HostingBaseURL string

	// ClothingMaskURL and AlternateMaskURL point at the mask images used by
	// the two inpainting remediation attempts.
	ClothingMaskURL  string
	AlternateMaskURL string

	// OriginVerifySecret gates the Lambda behind CloudFront. Empty disables
	// the check.
	OriginVerifySecret string
}

// Load reads configuration from the environment, applying defaults for any
// unset knob.
func Load() *Config {
	return &Config{
		ReplicateToken:     strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN")),
		ReplicateBaseURL:   envOrDefault("REPLICATE_BASE_URL", replicate.DefaultBaseURL),
		PollInterval:       millisFromEnv("REPLICATE_POLL_INTERVAL_MS", replicate.DefaultPollInterval),
		PollTimeout:        millisFromEnv("REPLICATE_POLL_TIMEOUT_MS", replicate.DefaultPollTimeout),
		BabyBucket:         os.Getenv("BABY_BUCKET_NAME"),
		HostingBaseURL:     strings.TrimSuffix(os.Getenv("HOSTING_BASE_URL"), "/"),
		ClothingMaskURL:    os.Getenv("CLOTHING_MASK_URL"),
		AlternateMaskURL:   os.Getenv("ALTERNATE_MASK_URL"),
		OriginVerifySecret: os.Getenv("ORIGIN_VERIFY_SECRET"),
	}
}

func envOrDefault(envVar, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v
	}
	return defaultVal
}

// millisFromEnv parses the named variable as an integer millisecond count.
// Malformed or non-positive values fall back to defaultVal with a warning so
// a bad deploy-time override cannot stall or hot-loop the poller.
func millisFromEnv(envVar string, defaultVal time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return defaultVal
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		log.Warn().Str("var", envVar).Str("value", raw).Msg("Ignoring invalid millisecond override")
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
