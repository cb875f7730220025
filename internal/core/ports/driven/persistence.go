package driven

import (
	"context"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// Materializer is the persistence contract (spec.md §6): it turns raw
// document bytes into a populated *domain.Document. The document passed in
// already carries its identity (namespace, name, path) — Materializer
// fills in Imports and Definitions, or returns ErrParseError.
type Materializer interface {
	Materialize(ctx context.Context, bytes []byte, format string, doc *domain.Document, ids *domain.IDGenerator) error
}
