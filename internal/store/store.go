// Package store provides the queryable hospital directory.
package store

import (
	"context"

	"github.com/ashureev/careline/internal/domain"
)

// Filter holds the optional lookup predicates. Both fields are
// case-insensitive substring matches, ANDed when both are set; empty means
// "match all". Predicates compile to parameterized SQL, never interpolation.
type Filter struct {
	City string
	Name string
}

// Directory answers filtered lookups over the hospital dataset.
type Directory interface {
	// Search returns up to limit matching rows. A non-positive limit falls
	// back to the default. Zero matches is an empty slice, not an error.
	// No ordering guarantee beyond natural iteration order.
	Search(ctx context.Context, f Filter, limit int) ([]domain.Hospital, error)

	// Count returns the number of matching rows.
	Count(ctx context.Context, f Filter) (int, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
