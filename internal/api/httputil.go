package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error          string   `json:"error"`
	Success        bool     `json:"success"`
	StepsCompleted []string `json:"stepsCompleted"`
}

// --- JSON Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends the failure JSON shape: the client message, success
// false, and whatever step trail accumulated before the failure. Optional
// internalDetails are logged server-side but never sent to the client.
func respondError(w http.ResponseWriter, status int, clientMsg string, steps []string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("Request failed")
	}
	if steps == nil {
		steps = []string{}
	}
	respondJSON(w, status, errorResponse{
		Error:          clientMsg,
		StepsCompleted: steps,
	})
}
