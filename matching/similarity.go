package matching

import (
	"fmt"
	"math"

	"modaapi/models"
)

// ValidateEmbedding rejects vectors that do not match the provider's
// fixed dimensionality. Mismatched vectors are a hard error, never
// truncated or padded.
func ValidateEmbedding(v []float64) error {
	if len(v) != models.EmbeddingDimension {
		return &ValidationError{
			Field:   "embedding",
			Kind:    KindInvalidEmbeddingDimension,
			Message: fmt.Sprintf("expected %d dimensions, got %d", models.EmbeddingDimension, len(v)),
		}
	}
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// A zero vector on either side yields 0 rather than an error; unequal
// lengths are a validation error.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &ValidationError{
			Field:   "embedding",
			Kind:    KindInvalidEmbeddingDimension,
			Message: fmt.Sprintf("dimension mismatch: %d vs %d", len(a), len(b)),
		}
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
