// Package boot holds the cold-start wiring shared by the binaries: AWS
// config, the SSM-backed Replicate token fallback, and hosting store
// selection. Each entry point's init composes these instead of repeating
// the plumbing.
package boot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-baby-generator/internal/hosting"
)

// defaultTokenParam is where deploys store the Replicate API token when it
// is not injected via environment.
const defaultTokenParam = "/ai-baby-generator/prod/replicate-api-token"

// LoadAWS resolves the default AWS config. Fatal on failure: a Lambda
// without credentials or region cannot do anything useful.
func LoadAWS() aws.Config {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg
}

// TokenParamPath returns the SSM parameter path the Replicate token is read
// from, honouring the SSM_API_TOKEN_PARAM override.
func TokenParamPath() string {
	if p := os.Getenv("SSM_API_TOKEN_PARAM"); p != "" {
		return p
	}
	return defaultTokenParam
}

// ResolveReplicateToken returns the Replicate API token, preferring the
// value already loaded from the environment and falling back to SSM
// Parameter Store. Non-fatal: without a token the service still boots and
// serves health checks, and every generation run fails fast as not
// configured.
func ResolveReplicateToken(cfg aws.Config, envToken string) string {
	if envToken != "" {
		return envToken
	}

	param := TokenParamPath()
	fetchStart := time.Now()
	out, err := ssm.NewFromConfig(cfg).GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		log.Warn().Err(err).Str("param", param).Msg("Replicate API token not found in SSM — generation disabled")
		return ""
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(fetchStart)).Msg("Replicate API token loaded from SSM")
	return aws.ToString(out.Parameter.Value)
}

// InitHosting selects the artifact store. S3-backed hosting needs both the
// bucket and the public base URL; without them portraits are returned at
// their remote artifact URLs.
func InitHosting(cfg aws.Config, bucket, baseURL string) hosting.Store {
	if bucket == "" || baseURL == "" {
		log.Warn().Msg("Hosting bucket or base URL not set — portraits served from remote artifact URLs")
		return hosting.PassthroughStore{}
	}
	return hosting.NewS3Store(s3.NewFromConfig(cfg), bucket, baseURL)
}
