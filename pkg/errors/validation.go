package errors

import (
	"strings"

	"github.com/google/uuid"
)

// MaxSourceSize is the largest DOT source accepted by ValidateSource (8 MiB).
const MaxSourceSize = 8 << 20

// ValidateSource validates a DOT source before it is handed to the engine.
//
// The validation rules are intentionally conservative:
//   - Maximum size of MaxSourceSize bytes
//   - No null bytes (the engine reads C strings and would truncate silently)
//
// An empty source is valid here; the renderer reports it as NO_GRAPH.
func ValidateSource(src string) error {
	if len(src) > MaxSourceSize {
		return New(ErrCodeInvalidInput, "source too large (%d bytes, max %d)", len(src), MaxSourceSize)
	}
	if strings.IndexByte(src, 0) >= 0 {
		return New(ErrCodeInvalidInput, "source contains null bytes")
	}
	return nil
}

// ValidateRequestID validates a caller supplied request ID.
// Empty IDs are valid (one is generated); otherwise the ID must be a UUID.
func ValidateRequestID(id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid request id %q", id)
	}
	return nil
}
