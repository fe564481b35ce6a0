package subm

import (
	"context"

	"github.com/google/uuid"
)

// ContentStore persists submissions. Implementations must apply Insert,
// UpdateStatus and Delete atomically together with their cascades.
type ContentStore interface {
	// Insert stores subm and its children as one unit.
	Insert(ctx context.Context, subm Subm, children ...Subm) (uuid.UUID, error)
	// GetByUUID returns ErrNotFound for unknown uuids. Deleted entities are
	// still returned.
	GetByUUID(ctx context.Context, id uuid.UUID) (*Subm, error)
	// ListByStatus returns entities ordered by submission time, oldest first.
	// Blobs of entities with recorded digests may be left out.
	ListByStatus(ctx context.Context, status Status, kind Kind) ([]Subm, error)
	// ListChildren leaves out blobs the same way ListByStatus does.
	ListChildren(ctx context.Context, parent uuid.UUID) ([]Subm, error)
	// UpdateStatus moves id from expected to next if and only if its current
	// status equals expected, cascading the same move to children that are
	// in expected. Reports false when the current status did not match.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected Status, next Status, actor string) (bool, error)
	// Delete tombstones id and its live children. Reports false when id was
	// already deleted.
	Delete(ctx context.Context, id uuid.UUID, actor string) (bool, error)
}
