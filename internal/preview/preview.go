// Package preview holds generated advertisement images until they are
// committed, discarded or expire. There is one slot per (subject, product).
package preview

import (
	"context"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
)

// Store is an ephemeral, subject-scoped preview store. Get on an empty or
// expired slot returns an apperrors NotFound error.
type Store interface {
	// Put replaces the slot of (p.SubjectID, p.ProductID).
	Put(ctx context.Context, p *domain.AdPreview) error
	Get(ctx context.Context, subjectID, productID string) (*domain.AdPreview, error)
	// Delete empties the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, subjectID, productID string) error
}
