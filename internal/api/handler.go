// Package api implements the HTTP surface of the baby generator: the
// generation endpoint, the health check, and the middleware shared by the
// Lambda and local server entry points.
//
// Generation (POST /api/generate):
//
//	Body: {"momUrl": ..., "dadUrl": ...}. Responds 200 with the hosted
//	portrait URL, the completed step trail, and a message, or a failure
//	status with the error and the partial trail. Every response carries
//	permissive CORS headers; OPTIONS preflight short-circuits with an
//	empty 200.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-baby-generator/internal/pipeline"
)

// maxBodySize caps the request body (1 MB). The body is two URLs; anything
// near the cap is garbage.
const maxBodySize = 1 << 20

const successMessage = "Baby generated successfully!"

// Generator runs one generation and returns its report. *pipeline.Pipeline
// satisfies this.
type Generator interface {
	Run(ctx context.Context, momURL, dadURL string) (*pipeline.RunReport, error)
}

type generateRequest struct {
	MomURL string `json:"momUrl"`
	DadURL string `json:"dadUrl"`
}

type generateResponse struct {
	BabyURL        string   `json:"babyUrl"`
	Success        bool     `json:"success"`
	StepsCompleted []string `json:"stepsCompleted"`
	Message        string   `json:"message"`
}

// Handler serves the generation endpoint.
type Handler struct {
	gen Generator
}

// NewHandler creates the generation handler.
func NewHandler(gen Generator) *Handler {
	return &Handler{gen: gen}
}

// ServeHTTP accepts POST only. OPTIONS never reaches the handler; the CORS
// middleware answers preflight before routing.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	h.handleGenerate(w, r)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.MomURL) == "" || strings.TrimSpace(req.DadURL) == "" {
		respondError(w, http.StatusBadRequest, "momUrl and dadUrl are required", nil)
		return
	}

	log.Debug().
		Str("momUrl", req.MomURL).
		Str("dadUrl", req.DadURL).
		Msg("Generation requested")

	report, err := h.gen.Run(r.Context(), req.MomURL, req.DadURL)
	if err != nil {
		var steps []string
		runID := "unknown"
		if report != nil {
			steps = report.StepsCompleted
			runID = report.RunID
		}
		respondError(w, http.StatusInternalServerError, err.Error(), steps,
			"runId="+runID)
		return
	}

	respondJSON(w, http.StatusOK, generateResponse{
		BabyURL:        report.BabyURL,
		Success:        true,
		StepsCompleted: report.StepsCompleted,
		Message:        successMessage,
	})
}

// HealthHandler reports service liveness. It responds regardless of
// configuration so a deploy can be verified before secrets are wired up.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "ai-baby-generator",
		})
	})
}
