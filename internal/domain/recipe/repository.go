package recipe

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchFilter narrows a recipe search. Empty fields do not filter.
type SearchFilter struct {
	// Query is matched case-insensitively as a substring of title or description
	Query string
	// Category must match exactly when set
	Category string
}

// RecipeRepository defines the persistence contract for recipes.
// All listing methods return recipes newest first.
type RecipeRepository interface {
	// Create inserts the recipe and fills in the store-generated ID and timestamps
	Create(ctx context.Context, r *Recipe) error

	// FindByID returns shared.ErrNotFound when no row matches
	FindByID(ctx context.Context, id uuid.UUID) (*Recipe, error)

	// FindAll returns every recipe
	FindAll(ctx context.Context) ([]*Recipe, error)

	// FindByOwner returns recipes whose owner is ownerID
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Recipe, error)

	// Search applies the filter
	Search(ctx context.Context, filter SearchFilter) ([]*Recipe, error)

	// Update writes the mutable columns of r. Returns shared.ErrNotFound if the row is gone.
	Update(ctx context.Context, r *Recipe) error

	// Delete physically removes the row. Returns shared.ErrNotFound if nothing was deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByCategory returns per-category counts of the owner's recipes
	CountByCategory(ctx context.Context, ownerID uuid.UUID) (map[string]int64, error)

	// LatestCreatedAt returns when the owner's newest recipe was created, or
	// the zero time if the owner has none
	LatestCreatedAt(ctx context.Context, ownerID uuid.UUID) (time.Time, error)
}
