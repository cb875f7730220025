package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrPathFormat indicates a corpus path contains a rejected fragment
	// (a leading "./", any "../", or any "/./").
	ErrPathFormat = errors.New("malformed corpus path")

	// ErrUnknownNamespace indicates a corpus path references a namespace
	// that has no registered storage adapter.
	ErrUnknownNamespace = errors.New("unknown namespace")

	// ErrNotFound indicates the loader could not fetch the requested path.
	ErrNotFound = errors.New("not found")

	// ErrParseError indicates the persistence layer rejected the document
	// bytes it was asked to materialize.
	ErrParseError = errors.New("parse error")

	// ErrDuplicateDeclaration indicates two declarations share a dotted
	// path inside the same document.
	ErrDuplicateDeclaration = errors.New("duplicate declaration")

	// ErrUnresolvedSymbol indicates a reference did not bind to any
	// defining document.
	ErrUnresolvedSymbol = errors.New("unresolved symbol")

	// ErrMonikerNotFound indicates a moniker prefix is unknown in both the
	// from-document and the wrt-document.
	ErrMonikerNotFound = errors.New("moniker not found")

	// ErrExpectedTypeMismatch indicates a resolved symbol has the wrong
	// object-type tag for the reference that requested it.
	ErrExpectedTypeMismatch = errors.New("expected type mismatch")

	// ErrParameterTypeMismatch indicates a trait argument is not
	// convertible to its parameter's data type.
	ErrParameterTypeMismatch = errors.New("parameter type mismatch")

	// ErrMissingRequiredArgument indicates a trait invocation omitted a
	// required parameter.
	ErrMissingRequiredArgument = errors.New("missing required argument")

	// ErrMissingPrimaryKey indicates a resolved entity lacks an
	// is.identifiedBy trait (warning-level in practice).
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrAlreadyLoading indicates a load for this path is already pending.
	ErrAlreadyLoading = errors.New("load already pending")

	// ErrNotCacheable indicates an object has no registered dependency set
	// and therefore cannot be assigned a cache key.
	ErrNotCacheable = errors.New("object not cacheable")
)
