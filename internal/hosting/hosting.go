// Package hosting materializes generated artifacts into durable URLs.
//
// The generation models serve their output from short-lived CDN URLs; a
// Store either re-hosts those bytes somewhere owned by us (S3Store) or hands
// the reference back untouched (PassthroughStore) when no bucket is
// configured.
package hosting

import "context"

// Store turns a remote artifact reference into a durable URL the caller can
// keep. Save failures are fatal to a pipeline run.
type Store interface {
	Save(ctx context.Context, artifactURL, filename string) (string, error)
}

// PassthroughStore returns artifact references unchanged. It is the fallback
// when no hosting bucket is configured: model output URLs stay live on the
// provider's CDN long enough for callers to fetch them.
type PassthroughStore struct{}

func (PassthroughStore) Save(_ context.Context, artifactURL, _ string) (string, error) {
	return artifactURL, nil
}
