package repositories

import (
	"errors"
	"fmt"
)

// Classified failure reasons shared across the ingestion and query pipelines.
// Callers branch on these with errors.Is rather than string matching.
var (
	// ErrNotFound indicates a referenced file or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat indicates a file extension outside the ingestion allow-list.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrProcessing indicates a load/chunk/embed/upsert failure during ingestion.
	ErrProcessing = errors.New("processing failed")

	// ErrRetrieval indicates an embedding or vector search failure during a query.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates a language model failure during a query.
	ErrGeneration = errors.New("generation failed")

	// ErrConnectivity indicates the broker is unreachable.
	ErrConnectivity = errors.New("broker unreachable")
)

// RepositoryError wraps a collaborator failure with the operation that hit it.
type RepositoryError struct {
	Operation string
	Err       error
}

func (e *RepositoryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("repository operation %s failed", e.Operation)
	}
	return fmt.Sprintf("repository operation %s failed: %v", e.Operation, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a classified repository error.
func NewRepositoryError(operation string, err error) *RepositoryError {
	return &RepositoryError{Operation: operation, Err: err}
}
