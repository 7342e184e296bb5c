package hosting

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutAPI struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func newTestS3Store(fake *fakePutAPI) *S3Store {
	return &S3Store{
		s3:         fake,
		bucket:     "baby-bucket",
		baseURL:    "https://babies.example.com",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// --- PassthroughStore Tests ---

func TestPassthroughStore_ReturnsReferenceUnchanged(t *testing.T) {
	store := PassthroughStore{}
	got, err := store.Save(context.Background(), "https://cdn.example.com/baby.png", "baby-1.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://cdn.example.com/baby.png" {
		t.Errorf("expected artifact URL unchanged, got %s", got)
	}
}

// --- S3Store Tests ---

func TestS3Store_Save(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("fake-image-bytes"))
	}))
	defer server.Close()

	fake := &fakePutAPI{}
	store := newTestS3Store(fake)

	url, err := store.Save(context.Background(), server.URL+"/out.webp", "baby-abc.webp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if url != "https://babies.example.com/babies/baby-abc.webp" {
		t.Errorf("unexpected hosted URL: %s", url)
	}
	if fake.input == nil {
		t.Fatal("expected PutObject to be called")
	}
	if *fake.input.Bucket != "baby-bucket" {
		t.Errorf("unexpected bucket: %s", *fake.input.Bucket)
	}
	if *fake.input.Key != "babies/baby-abc.webp" {
		t.Errorf("unexpected key: %s", *fake.input.Key)
	}
	if *fake.input.ContentType != "image/webp" {
		t.Errorf("unexpected content type: %s", *fake.input.ContentType)
	}
	body, _ := io.ReadAll(fake.input.Body)
	if string(body) != "fake-image-bytes" {
		t.Errorf("unexpected uploaded body: %s", body)
	}
}

func TestS3Store_DefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress automatic content-type detection.
		w.Header()["Content-Type"] = nil
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer server.Close()

	fake := &fakePutAPI{}
	store := newTestS3Store(fake)

	if _, err := store.Save(context.Background(), server.URL, "baby.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *fake.input.ContentType != "image/png" {
		t.Errorf("expected image/png fallback, got %s", *fake.input.ContentType)
	}
}

func TestS3Store_DownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fake := &fakePutAPI{}
	store := newTestS3Store(fake)

	_, err := store.Save(context.Background(), server.URL, "baby.png")
	if err == nil {
		t.Fatal("expected error for 404 artifact")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected status in error, got: %v", err)
	}
	if fake.input != nil {
		t.Error("expected no upload after failed download")
	}
}

func TestS3Store_UploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer server.Close()

	fake := &fakePutAPI{err: errors.New("access denied")}
	store := newTestS3Store(fake)

	_, err := store.Save(context.Background(), server.URL, "baby.png")
	if err == nil {
		t.Fatal("expected error when upload fails")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected wrapped S3 error, got: %v", err)
	}
}
