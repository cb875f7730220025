// Package driving declares the Corpus API surface consumed by callers
// (spec.md §6 "Corpus API").
package driving

import (
	"context"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// FetchAnchor rebases a relative path argument to FetchObject against an
// anchor object's owning document (spec.md §4.1).
type FetchAnchor struct {
	Document *domain.Document
}

// Corpus is the public API of the symbol-resolution and indexing engine
// (spec.md §6).
type Corpus interface {
	// FetchObject resolves path (absolute, or relative to anchor) to its
	// definition. shallow downgrades reference/type errors encountered
	// along the way to warnings.
	FetchObject(ctx context.Context, path string, anchor *FetchAnchor, shallow bool) (*domain.Definition, error)

	// CalculateEntityGraph extracts end-to-end relationships for every
	// entity declared in manifestPath (and recursively in its
	// sub-manifests), populating the outgoing/incoming maps.
	CalculateEntityGraph(ctx context.Context, manifestPath string) error

	FetchIncomingRelationships(entity string) []*domain.Relationship
	FetchOutgoingRelationships(entity string) []*domain.Relationship

	// ResolveReferencesAndValidate runs the indexing pipeline's resolve
	// passes from stage up to (and including) stageThrough over every
	// dirty document, returning the stage actually reached.
	ResolveReferencesAndValidate(ctx context.Context, stage, stageThrough domain.ValidationStage) (domain.ValidationStage, error)

	SetEventCallback(callback domain.EventCallback, minLevel domain.Severity)

	// MakeObject constructs a blank, document-less instance of a given
	// tagged type. With simpleRef set, the instance gets a validator that
	// always passes; no reference shell is created and nothing binds or
	// resolves the instance later.
	MakeObject(kind domain.ObjectType, name string, simpleRef bool) *domain.Definition

	SetDefaultResolutionDirectives(set domain.DirectiveSet)

	// Healthy pings every storage adapter registered under namespaces and,
	// if configured, the distributed lock. The resolution cache is not
	// pinged.
	Healthy(ctx context.Context, namespaces []string) error

	// Close is a graceful-shutdown hook. Indexing locks are released at the
	// end of each pipeline run, so Close itself releases nothing.
	Close(ctx context.Context) error
}
