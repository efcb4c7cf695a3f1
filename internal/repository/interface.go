package repository

import (
	"context"
	"errors"
	"time"

	"convertly/internal/model"
)

// ErrNotFound is returned when no conversion exists for the given id.
var ErrNotFound = errors.New("conversion not found")

// ConversionUpdate is a partial update applied to an existing record.
// Zero fields are left untouched.
type ConversionUpdate struct {
	Status      model.Status
	CompletedAt *time.Time
}

// ConversionRepository defines data access for conversion records. One
// record is only ever written by the request that created it, so
// implementations need no cross-record coordination.
type ConversionRepository interface {
	// Create allocates an id, stamps createdAt and persists a new record
	// in status pending.
	Create(ctx context.Context, fileName, originalFormat, targetFormat string, settings model.ConversionSettings) (*model.Conversion, error)

	// Update applies a partial update. Status changes must move the
	// lifecycle forward; regressions are rejected.
	Update(ctx context.Context, id string, upd ConversionUpdate) (*model.Conversion, error)

	// Get retrieves a conversion by id.
	Get(ctx context.Context, id string) (*model.Conversion, error)

	// List returns the most recent conversions, newest first.
	List(ctx context.Context, limit int) ([]model.Conversion, error)
}
