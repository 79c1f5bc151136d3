package entity

import "errors"

// Domain errors
var (
	// Contract violations of pure functions (non-positive chunk size or k, blank query)
	ErrInvalidArgument = errors.New("invalid argument")

	// Vector dimension inconsistency
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrMalformedEmbedding = errors.New("malformed embedding")

	// External services exhausted their retries
	ErrEmbeddingUnavailable  = errors.New("embedding service unavailable")
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// Index errors
	ErrNotFound          = errors.New("index not found")
	ErrUnsupportedFormat = errors.New("unsupported index format version")
)
