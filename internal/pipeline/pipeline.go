// Package pipeline runs the baby-generation workflow: parent photo
// preprocessing, the generation job itself, the NSFW screening loop with
// inpainting remediation, and hosting of the final portrait.
//
// Every completed stage is recorded in an append-only step trail that is
// returned to the caller on success and on failure, so clients can show
// how far a run progressed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-baby-generator/internal/hosting"
	"github.com/fpang/ai-baby-generator/internal/metrics"
	"github.com/fpang/ai-baby-generator/internal/runs"
)

// Stage labels recorded in the step trail. Classification steps are
// labelled dynamically as "nsfw_check_<n>: <verdict>".
const (
	StageDadPreprocessing    = "dad_preprocessing"
	StageBabyGeneration      = "baby_generation"
	StageClothingInpainting  = "clothing_inpainting"
	StageAlternateInpainting = "alternate_inpainting"
	StageImageHosting        = "image_hosting"

	stageNSFWCheckPrefix = "nsfw_check_"
)

// VerdictNormal is the only classifier output that counts as safe. The
// comparison is exact: any other output, including casing variants and an
// empty response, flags the image.
const VerdictNormal = "normal"

// verdictUnknown stands in for an empty classifier response in the step
// trail. An unknown verdict is still treated as flagged.
const verdictUnknown = "unknown"

// Remediation prompts. Both attempts re-edit the original composite; the
// second swaps mask and wording in case the first mask missed the flagged
// region.
const (
	dadPreprocessPrompt = "same face, clean shaven, no glasses, neutral background"
	clothingPrompt      = "baby wearing a cute white onesie, fully clothed, soft studio portrait"
	alternatePrompt     = "baby swaddled up to the shoulders in a soft pastel blanket"
)

// ErrUnsafeContent is returned when every remediation attempt still
// classifies as unsafe. The pipeline fails closed instead of returning an
// artifact it could not clear.
var ErrUnsafeContent = errors.New("safe output not possible after multiple attempts")

// JobRunner executes one model job to completion and returns the URL of
// its first output artifact. *replicate.Client satisfies this.
type JobRunner interface {
	Run(ctx context.Context, version string, input map[string]interface{}) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	Jobs   JobRunner
	Store  hosting.Store
	Models ModelSet

	// Mask images for the two inpainting strategies.
	ClothingMaskURL  string
	AlternateMaskURL string
}

// RunReport is the outcome of a pipeline run. StepsCompleted is populated
// even when Run returns an error.
type RunReport struct {
	RunID          string
	BabyURL        string
	StepsCompleted []string
}

func (r *RunReport) addStep(label string) {
	r.StepsCompleted = append(r.StepsCompleted, label)
}

// remediationStage is one entry in the remediation plan: the trail label
// plus the job input built from the original composite.
type remediationStage struct {
	label   string
	version string
	input   func(compositeURL string) map[string]interface{}
}

// Pipeline orchestrates a full generation run.
type Pipeline struct {
	jobs   JobRunner
	store  hosting.Store
	models ModelSet
	plan   []remediationStage
}

// New builds a Pipeline. A nil Store keeps generated portraits at their
// remote artifact URL.
func New(opts Options) *Pipeline {
	store := opts.Store
	if store == nil {
		store = hosting.PassthroughStore{}
	}
	return &Pipeline{
		jobs:   opts.Jobs,
		store:  store,
		models: opts.Models,
		plan: []remediationStage{
			{
				label:   StageClothingInpainting,
				version: opts.Models.Inpainting,
				input: func(compositeURL string) map[string]interface{} {
					return map[string]interface{}{
						"image":  compositeURL,
						"mask":   opts.ClothingMaskURL,
						"prompt": clothingPrompt,
					}
				},
			},
			{
				label:   StageAlternateInpainting,
				version: opts.Models.Inpainting,
				input: func(compositeURL string) map[string]interface{} {
					return map[string]interface{}{
						"image":  compositeURL,
						"mask":   opts.AlternateMaskURL,
						"prompt": alternatePrompt,
					}
				},
			},
		},
	}
}

// Run generates a baby portrait from the two parent photos. The returned
// report is never nil; on error its step trail shows how far the run got.
func (p *Pipeline) Run(ctx context.Context, momURL, dadURL string) (report *RunReport, err error) {
	report = &RunReport{RunID: runs.NewID()}
	runStart := time.Now()
	remediations := 0
	defer func() { emitRunMetrics(report, runStart, remediations, err) }()

	log.Info().
		Str("runId", report.RunID).
		Msg("Generation run started")

	// Dad preprocessing is best effort: on failure the original photo is
	// used and the stage is left out of the trail.
	processedDadURL, prepErr := p.jobs.Run(ctx, p.models.DadPreprocess, map[string]interface{}{
		"image":  dadURL,
		"prompt": dadPreprocessPrompt,
	})
	if prepErr != nil {
		log.Warn().
			Err(prepErr).
			Str("runId", report.RunID).
			Msg("Dad preprocessing failed, continuing with original photo")
		processedDadURL = dadURL
	} else {
		report.addStep(StageDadPreprocessing)
	}

	compositeURL, err := p.jobs.Run(ctx, p.models.BabyGeneration, map[string]interface{}{
		"mom_image": momURL,
		"dad_image": processedDadURL,
	})
	if err != nil {
		return report, fmt.Errorf("baby generation failed: %w", err)
	}
	report.addStep(StageBabyGeneration)

	// Screening loop: classify the current candidate, remediate on a flag,
	// give up once the plan is exhausted. At most len(plan)+1 checks run.
	candidateURL := compositeURL
	for attempt := 0; ; attempt++ {
		verdict, err := p.classify(ctx, candidateURL)
		if err != nil {
			return report, fmt.Errorf("nsfw check %d failed: %w", attempt+1, err)
		}
		report.addStep(fmt.Sprintf("%s%d: %s", stageNSFWCheckPrefix, attempt+1, verdict))

		if verdict == VerdictNormal {
			break
		}
		if attempt >= len(p.plan) {
			return report, ErrUnsafeContent
		}

		stage := p.plan[attempt]
		log.Info().
			Str("runId", report.RunID).
			Str("stage", stage.label).
			Str("verdict", verdict).
			Msg("Composite flagged, running remediation")

		// Remediation always edits the original composite, never a prior
		// attempt's output, so edits cannot compound across attempts.
		remediations++
		candidateURL, err = p.jobs.Run(ctx, stage.version, stage.input(compositeURL))
		if err != nil {
			return report, fmt.Errorf("%s failed: %w", stage.label, err)
		}
		report.addStep(stage.label)
	}

	hostedURL, err := p.store.Save(ctx, candidateURL, runs.ArtifactName())
	if err != nil {
		return report, fmt.Errorf("image hosting failed: %w", err)
	}
	report.addStep(StageImageHosting)
	report.BabyURL = hostedURL

	log.Info().
		Str("runId", report.RunID).
		Str("babyUrl", hostedURL).
		Int("steps", len(report.StepsCompleted)).
		Msg("Generation run complete")
	return report, nil
}

// classify runs the safety model on the candidate image. The verdict is
// trimmed but otherwise recorded verbatim; an empty response becomes
// "unknown" so the trail distinguishes a missing verdict from a flag.
func (p *Pipeline) classify(ctx context.Context, imageURL string) (string, error) {
	out, err := p.jobs.Run(ctx, p.models.NSFWCheck, map[string]interface{}{
		"image": imageURL,
	})
	if err != nil {
		return "", err
	}
	verdict := strings.TrimSpace(out)
	if verdict == "" {
		verdict = verdictUnknown
	}
	return verdict, nil
}

func emitRunMetrics(report *RunReport, start time.Time, remediations int, err error) {
	rec := metrics.New(metrics.DefaultNamespace).
		Dimension("Operation", "generate").
		Timing("RunDurationMs", start).
		Metric("RemediationAttempts", float64(remediations), metrics.UnitCount).
		Property("runId", report.RunID).
		Property("steps", len(report.StepsCompleted))
	if err != nil {
		rec.Count("RunFailure")
	} else {
		rec.Count("RunSuccess")
	}
	rec.Flush()
}
