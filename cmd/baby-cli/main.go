// Package main provides a terminal client for the baby generator: run one
// generation from two parent photo URLs and print the step trail and the
// final portrait URL.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-baby-generator/internal/config"
	"github.com/fpang/ai-baby-generator/internal/logging"
	"github.com/fpang/ai-baby-generator/internal/pipeline"
	"github.com/fpang/ai-baby-generator/internal/replicate"
)

// CLI flags
var (
	momFlag     string
	dadFlag     string
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "baby-cli",
	Short: "Generate a baby portrait from two parent photos",
	Long: `Baby CLI runs one generation against the Replicate API: the dad photo is
normalized, both parents are blended into a baby portrait, the result is
screened for NSFW content (with automatic inpainting remediation on a
flag), and the final image URL is printed.

REPLICATE_API_TOKEN must be set (a .env file is honored).

Examples:
  baby-cli --mom https://example.com/mom.jpg --dad https://example.com/dad.jpg
  baby-cli --mom ... --dad ... --poll-timeout 5m`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&momFlag, "mom", "", "URL of the mom photo (required)")
	rootCmd.Flags().StringVar(&dadFlag, "dad", "", "URL of the dad photo (required)")
	rootCmd.Flags().DurationVar(&timeoutFlag, "poll-timeout", replicate.DefaultPollTimeout, "How long to wait for each Replicate job")
	rootCmd.MarkFlagRequired("mom")
	rootCmd.MarkFlagRequired("dad")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	logging.Init()

	cfg := config.Load()
	if cfg.ReplicateToken == "" {
		log.Fatal().Msg("REPLICATE_API_TOKEN is required")
	}

	// No hosting store: the CLI prints the remote artifact URL directly.
	generator := pipeline.New(pipeline.Options{
		Jobs: replicate.NewClient(replicate.Options{
			Token:        cfg.ReplicateToken,
			BaseURL:      cfg.ReplicateBaseURL,
			PollInterval: cfg.PollInterval,
			PollTimeout:  timeoutFlag,
		}),
		Models:           pipeline.DefaultModels(),
		ClothingMaskURL:  cfg.ClothingMaskURL,
		AlternateMaskURL: cfg.AlternateMaskURL,
	})

	fmt.Println()
	fmt.Println("⏳ Generating baby portrait (this can take a few minutes)...")
	fmt.Println()

	start := time.Now()
	report, err := generator.Run(context.Background(), momFlag, dadFlag)

	fmt.Println("Steps completed:")
	for i, step := range report.StepsCompleted {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	fmt.Println()

	if err != nil {
		log.Fatal().Err(err).Str("runId", report.RunID).Msg("Generation failed")
	}

	fmt.Printf("Run: %s\n", report.RunID)
	fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Second))
	fmt.Printf("Baby portrait: %s\n\n", report.BabyURL)
}
