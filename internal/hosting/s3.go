package hosting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// keyPrefix is the folder hosted portraits live under in the bucket.
const keyPrefix = "babies/"

// maxArtifactBytes caps how much image data Save will buffer. Generated
// portraits are single images; anything larger means the URL does not point
// at what we think it does.
const maxArtifactBytes = 32 << 20 // 32 MiB

// s3PutAPI is the slice of the S3 client Save depends on.
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store downloads a generated artifact and re-uploads it to an S3 bucket
// fronted by a public base URL (e.g. a CloudFront distribution).
type S3Store struct {
	s3         s3PutAPI
	httpClient *http.Client
	bucket     string
	baseURL    string
}

// NewS3Store creates a store uploading into bucket and serving from baseURL.
func NewS3Store(client *s3.Client, bucket, baseURL string) *S3Store {
	return &S3Store{
		s3:         client,
		bucket:     bucket,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Save fetches the artifact bytes and writes them to the bucket under
// babies/<filename>, returning the public URL.
func (s *S3Store) Save(ctx context.Context, artifactURL, filename string) (string, error) {
	key := keyPrefix + filename

	log.Debug().
		Str("url", artifactURL).
		Str("key", key).
		Msg("Downloading artifact for hosting")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artifact download returned status %d", resp.StatusCode)
	}

	// PutObject wants a seekable body, so buffer the image in memory.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	if len(data) > maxArtifactBytes {
		return "", fmt.Errorf("artifact exceeds %d bytes", maxArtifactBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact to S3: %w", err)
	}

	log.Info().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Artifact hosted to S3")

	return s.baseURL + "/" + key, nil
}
