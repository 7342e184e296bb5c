package pipeline

import "os"

// Replicate model versions
//
// | Model                | Purpose                            | Override env var       |
// |----------------------|------------------------------------|------------------------|
// | face-cleanup         | Dad photo normalization            | BABYGEN_MODEL_DAD_PREP |
// | face-to-baby         | Two-parent baby composite          | BABYGEN_MODEL_BABY     |
// | nsfw-image-detection | Safety verdict on the composite    | BABYGEN_MODEL_NSFW     |
// | stable-inpainting    | Mask-based remediation edits       | BABYGEN_MODEL_INPAINT  |
const (
	// ModelDadPreprocess normalizes the dad photo (facial hair, glasses)
	// so those features do not bleed into the composite.
	ModelDadPreprocess = "5f8e7a31d9c04b26a1e3f70b4c92d85e6b0dc4f2e917a3582d9b61e0c7f4a583"

	// ModelBabyGeneration blends the two parent photos into a baby portrait.
	ModelBabyGeneration = "8af3b8c28750e5b0c1f7e6542c3ff2a1d09b8ddca6571b20ca9e534cf62f8e07"

	// ModelNSFWCheck classifies an image; outputs the literal "normal" for
	// safe content.
	ModelNSFWCheck = "597a8b5e331c0e7e4b4ce3121ac5cfa5b8f1f29bd2cd75c8b7c9df352237eab8"

	// ModelInpainting repaints the masked region of an image from a prompt.
	// Used by both remediation attempts with different masks.
	ModelInpainting = "c11bac58203367c93e57e5a0f2f382755b27403ac618860e375e2dd1f8e2e30d"
)

// ModelSet pins the model version driven by each pipeline stage.
type ModelSet struct {
	DadPreprocess  string
	BabyGeneration string
	NSFWCheck      string
	Inpainting     string
}

// DefaultModels resolves the model set, applying any BABYGEN_MODEL_*
// environment overrides. Overrides exist for staged rollouts of new model
// versions without a redeploy.
func DefaultModels() ModelSet {
	return ModelSet{
		DadPreprocess:  modelFromEnv("BABYGEN_MODEL_DAD_PREP", ModelDadPreprocess),
		BabyGeneration: modelFromEnv("BABYGEN_MODEL_BABY", ModelBabyGeneration),
		NSFWCheck:      modelFromEnv("BABYGEN_MODEL_NSFW", ModelNSFWCheck),
		Inpainting:     modelFromEnv("BABYGEN_MODEL_INPAINT", ModelInpainting),
	}
}

func modelFromEnv(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}
