// Package runs mints the identifiers a generation run hands out: the run ID
// that tags its logs and metrics, and the object name the finished portrait
// is stored under.
package runs

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a fresh run identifier, e.g. "run-1b4e28ba-...". The prefix
// keeps run IDs recognisable when they appear next to prediction IDs in
// logs.
func NewID() string {
	return "run-" + uuid.NewString()
}

// ArtifactName returns a unique object name for a finished portrait. Names
// never collide, so hosted portraits are immutable and safe to cache.
func ArtifactName() string {
	return fmt.Sprintf("baby-%s.png", uuid.NewString())
}
