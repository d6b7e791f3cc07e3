package document

import (
	"context"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// ListFilter narrows document listings
type ListFilter struct {
	shared.Filter
	Kind   Kind
	Status Status
}

// DocumentRepository defines the interface for document persistence.
// Lines and their allocations are loaded and saved with the document.
type DocumentRepository interface {
	// FindByID finds a document with its lines and allocations
	FindByID(ctx context.Context, id int64) (*Document, error)

	// FindByIDForUpdate finds and row-locks a document
	FindByIDForUpdate(ctx context.Context, id int64) (*Document, error)

	// FindByNumber finds a document by its number
	FindByNumber(ctx context.Context, number string) (*Document, error)

	// List returns documents matching the filter, newest first
	List(ctx context.Context, filter ListFilter) ([]Document, int64, error)

	// Create inserts the document and its lines, assigning all IDs
	Create(ctx context.Context, doc *Document) error

	// Save updates the header and rewrites lines while the document is a Draft.
	// For non-draft documents only the header and new allocations are written.
	Save(ctx context.Context, doc *Document) error

	// Delete hard-deletes a draft and its lines
	Delete(ctx context.Context, id int64) error

	// NextNumber reserves the next sequence value for the kind under a row lock
	NextNumber(ctx context.Context, kind Kind) (string, error)
}
