package omnidupe

import "errors"

// Sentinel errors for conditions callers branch on, per the ambient
// error-handling stack (§2.1): not-found, protected, conflict-exhausted.
var (
	ErrImageNotFound     = errors.New("omnidupe: image not found in catalog")
	ErrGroupNotFound     = errors.New("omnidupe: duplicate group not found")
	ErrProtected         = errors.New("omnidupe: image is protected from removal")
	ErrConflictExhausted = errors.New("omnidupe: could not resolve destination name conflict")
	ErrNotRegularFile    = errors.New("omnidupe: path is not a regular file")
	ErrInvalidThreshold  = errors.New("omnidupe: similarity threshold must be within [0, 64]")
	ErrCatalogClosed     = errors.New("omnidupe: catalog is closed")
	ErrCancelled         = errors.New("omnidupe: operation cancelled")
	ErrKeeperMissing     = errors.New("omnidupe: group keeper file is missing or unreadable")
)
