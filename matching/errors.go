package matching

import "fmt"

const (
	KindUserIdRequired            = "UserIdRequired"
	KindInvalidEmbeddingDimension = "InvalidEmbeddingDimension"
	KindInvalidPagination         = "InvalidPagination"
	KindInvalidStrategy           = "InvalidStrategy"
	KindMissingParameter          = "MissingParameter"
)

// ValidationError is a caller mistake. Never retried; carries the field
// and a stable kind so the HTTP layer can map it without string matching.
type ValidationError struct {
	Field   string
	Kind    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NotFoundError covers referenced garments, users, profiles and
// collections that do not exist.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// UpstreamError wraps a catalog store or embedding provider failure.
// Retryable reads may be attempted again with backoff at the
// orchestrator boundary.
type UpstreamError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ScoringError marks a candidate whose profile data was unexpectedly
// missing. The candidate degrades to a neutral score instead of
// failing the page.
type ScoringError struct {
	GarmentID uint
	Reason    string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring garment %d: %s", e.GarmentID, e.Reason)
}
