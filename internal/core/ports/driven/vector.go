package driven

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// VectorIndex stores owner-scoped vector units and answers nearest-neighbour
// queries by cosine distance.
//
// Every method takes the owner explicitly. No method reads, replaces or
// deletes a unit that belongs to a different owner.
type VectorIndex interface {
	// Insert stores or replaces a single unit.
	// Replacing a unit that belongs to another owner is a conflict error.
	Insert(ctx context.Context, ownerID, unitID string, vector []float32, payload domain.VectorPayload) error

	// InsertMany stores or replaces a batch of units. Either every record
	// becomes visible or none does.
	InsertMany(ctx context.Context, ownerID string, records []domain.VectorRecord) error

	// Search returns at most k units of the owner ordered by ascending cosine
	// distance, ties broken by insertion order. k <= 0 returns an empty slice.
	Search(ctx context.Context, ownerID string, query []float32, k int) ([]domain.VectorHit, error)

	// Delete removes a unit. Deleting a missing unit is not an error.
	Delete(ctx context.Context, ownerID, unitID string) error

	// DeleteMany removes several units. Missing units are skipped.
	DeleteMany(ctx context.Context, ownerID string, unitIDs []string) error

	// Dimensions returns the vector width the index accepts.
	Dimensions() int

	// Close releases resources.
	Close() error
}
