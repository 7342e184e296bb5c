package replicate

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes callers branch on with errors.Is.
var (
	// ErrNotConfigured means the client has no API token. Returned before
	// any network I/O happens.
	ErrNotConfigured = errors.New("replicate API token not configured")

	// ErrNoPollLocation means a creation response carried no poll URL. The
	// service broke its own contract; there is nothing to poll.
	ErrNoPollLocation = errors.New("prediction response contained no poll location")

	// ErrPollTimeout means the prediction did not reach a terminal state
	// within the poll budget.
	ErrPollTimeout = errors.New("prediction polling timed out")
)

// APIError is a transport-level failure: the service answered create or poll
// with a non-2xx status.
type APIError struct {
	Op         string // "create" or "poll"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("replicate %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// PredictionError is a remote-side failure: an error reported inside a
// response body, a prediction that finished failed or canceled, or a success
// with no usable output.
type PredictionError struct {
	// Status is the prediction status at the time of failure. Not
	// necessarily terminal: the service reports errors mid-flight too.
	Status  string
	Message string
}

func (e *PredictionError) Error() string {
	switch {
	case e.Status == "":
		return fmt.Sprintf("prediction error: %s", e.Message)
	case e.Message == "":
		return fmt.Sprintf("prediction %s", e.Status)
	default:
		return fmt.Sprintf("prediction %s: %s", e.Status, e.Message)
	}
}
