// Package replicate is a minimal client for the Replicate predictions API.
// A prediction is created with POST /predictions and then polled at the URL
// the service hands back until it reaches a terminal state. The package
// exposes that create-and-poll contract as one blocking call.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults for the polling loop. One second between polls keeps the added
// latency per call under half the interval on average; two minutes covers
// cold boots on the heavier image models.
const (
	DefaultBaseURL      = "https://api.replicate.com/v1"
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 2 * time.Minute
)

// Terminal prediction statuses. Anything else ("starting", "processing", or
// a value this client has never heard of) counts as pending.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Options carries the construction knobs for Client.
type Options struct {
	// Token authenticates every request. Empty means not configured: Run
	// fails fast without issuing network I/O.
	Token string

	// BaseURL overrides the API root, mainly for tests. Defaults to
	// DefaultBaseURL.
	BaseURL string

	// PollInterval and PollTimeout tune the polling loop. Zero values take
	// the package defaults.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Client drives Replicate predictions to completion. One Run call owns one
// prediction; the client keeps no state across calls and is safe for
// concurrent use.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewClient creates a prediction client. Zero-valued options fall back to
// the package defaults; an empty token is allowed so binaries can start
// unconfigured, but every Run call will fail with ErrNotConfigured.
func NewClient(opts Options) *Client {
	c := &Client{
		token:        opts.Token,
		baseURL:      opts.BaseURL,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = DefaultPollTimeout
	}
	return c
}

// IsConfigured returns true if the client holds an API token.
func (c *Client) IsConfigured() bool {
	return c.token != ""
}

// --- Replicate request/response types ---

type predictionRequest struct {
	Version string                 `json:"version"`
	Input   map[string]interface{} `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	URLs   predictionURLs  `json:"urls"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type predictionURLs struct {
	Get    string `json:"get"`
	Cancel string `json:"cancel,omitempty"`
}

// Run submits one prediction for the given model version and blocks until it
// resolves, polling the status URL at the configured interval. On success it
// returns the first output artifact reference.
//
// Run performs no retries of its own: transport failures, in-body errors,
// contract violations, and timeouts all surface immediately as typed errors
// (see errors.go). Retry policy belongs to the caller.
func (c *Client) Run(ctx context.Context, version string, input map[string]interface{}) (string, error) {
	if c.token == "" {
		return "", ErrNotConfigured
	}

	log.Debug().
		Str("version", truncateString(version, 40)).
		Int("input_keys", len(input)).
		Msg("Run: Creating prediction")

	start := time.Now()

	pred, err := c.createPrediction(ctx, version, input)
	if err != nil {
		return "", err
	}

	if pred.URLs.Get == "" {
		return "", ErrNoPollLocation
	}

	polls := 0
	for !isTerminal(pred.Status) {
		// Timeout is checked before each sleep so a stuck prediction cannot
		// hold the call past its budget by more than one interval.
		if time.Since(start) > c.pollTimeout {
			return "", fmt.Errorf("%w: prediction %s still %q after %s",
				ErrPollTimeout, pred.ID, pred.Status, c.pollTimeout)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		pred, err = c.getPrediction(ctx, pred.URLs.Get)
		if err != nil {
			return "", err
		}
		polls++
	}

	log.Debug().
		Str("prediction_id", pred.ID).
		Str("status", pred.Status).
		Int("polls", polls).
		Dur("duration", time.Since(start)).
		Msg("Run: Prediction reached terminal state")

	if pred.Status != StatusSucceeded {
		return "", &PredictionError{Status: pred.Status, Message: pred.Error}
	}

	out, ok := firstOutput(pred.Output)
	if !ok {
		return "", &PredictionError{Status: pred.Status, Message: "no output artifacts returned"}
	}
	return out, nil
}

// createPrediction issues the creation POST and decodes the job handle.
func (c *Client) createPrediction(ctx context.Context, version string, input map[string]interface{}) (*prediction, error) {
	body, err := json.Marshal(predictionRequest{Version: version, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(httpReq, "create")
}

// getPrediction re-fetches prediction state from the poll URL handed back at
// creation time.
func (c *Client) getPrediction(ctx context.Context, pollURL string) (*prediction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}

	return c.do(httpReq, "poll")
}

// do sends one request and applies the response checks shared by create and
// poll: non-2xx fails as a transport error, and an error field inside an
// otherwise successful body fails as a remote error regardless of status.
func (c *Client) do(req *http.Request, op string) (*prediction, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Replicate API returned error")
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: truncateString(string(respBody), 200)}
	}

	var pred prediction
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", op, err)
	}

	if pred.Error != "" {
		return nil, &PredictionError{Status: pred.Status, Message: pred.Error}
	}

	return &pred, nil
}

func isTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// firstOutput extracts the first artifact reference from a prediction
// output, which the API serialises either as a single string or as an array
// of strings depending on the model.
func firstOutput(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, single != ""
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0] != "" {
		return many[0], true
	}
	return "", false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
