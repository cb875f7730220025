package domain

import "strings"

// DefaultNamespace is used when a corpus path carries no explicit
// "namespace:" prefix.
const DefaultNamespace = "local"

// ValidatePathFormat rejects the path fragments spec.md §6 calls out:
// a leading "./" or ".\", any "../" or "..\", and any "/./" or "\.\".
func ValidatePathFormat(path string) error {
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, `.\`) {
		return ErrPathFormat
	}
	if strings.Contains(path, "../") || strings.Contains(path, `..\`) {
		return ErrPathFormat
	}
	if strings.Contains(path, "/./") || strings.Contains(path, `\.\`) {
		return ErrPathFormat
	}
	return nil
}

// SplitNamespace splits a corpus path into (namespace, path). If the input
// contains ":" before any "/", that prefix is the namespace; otherwise the
// given default namespace applies (spec §4.1).
func SplitNamespace(path, defaultNamespace string) (namespace, rest string) {
	slash := strings.IndexByte(path, '/')
	colon := strings.IndexByte(path, ':')
	if colon >= 0 && (slash < 0 || colon < slash) {
		return path[:colon], path[colon+1:]
	}
	return defaultNamespace, path
}

// IsAbsolute reports whether path carries an explicit "namespace:" prefix.
func IsAbsolute(path string) bool {
	slash := strings.IndexByte(path, '/')
	colon := strings.IndexByte(path, ':')
	return colon >= 0 && (slash < 0 || colon < slash)
}

// RebasePath rebases a relative path against an anchor's namespace and
// in-document folder, producing an absolute corpus path (spec §4.1).
func RebasePath(relative, anchorNamespace, anchorFolder string) string {
	if IsAbsolute(relative) {
		return relative
	}
	folder := strings.TrimSuffix(anchorFolder, "/")
	rel := strings.TrimPrefix(relative, "/")
	if folder == "" {
		return anchorNamespace + ":/" + rel
	}
	return anchorNamespace + ":" + folder + "/" + rel
}

// NormalizeForLookup lowercases a corpus path for case-insensitive index
// comparisons (spec §3 "Paths are compared case-insensitively").
func NormalizeForLookup(path string) string {
	return strings.ToLower(path)
}

// SplitMoniker splits a symbol of the form "moniker/Symbol" or
// "a/b/Symbol" into its first moniker segment and the remainder. Reports
// ok=false when the symbol carries no "/".
func SplitMoniker(symbol string) (prefix, rest string, ok bool) {
	idx := strings.IndexByte(symbol, '/')
	if idx < 0 {
		return "", symbol, false
	}
	return symbol[:idx], symbol[idx+1:], true
}
