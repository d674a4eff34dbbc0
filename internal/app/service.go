package app

import (
	"context"

	"procurement-docs/internal/core"
)

// ApplicationService is the single interface all adapters (REPL, CLI, Web) call.
// It decouples presentation from persistence. Implementations contain no display
// logic of any kind.
type ApplicationService interface {
	// ListDocuments returns the register for one document type.
	ListDocuments(ctx context.Context, docType string) (*DocumentListResult, error)

	// GetDocument returns the full snapshot of one document together with its
	// derived per-item totals.
	GetDocument(ctx context.Context, docType string, id int) (*DocumentResult, error)

	// SaveDocument creates (ID == 0) or updates a document. Updates must carry the
	// version that was loaded; a stale version returns core.ErrVersionConflict.
	SaveDocument(ctx context.Context, req SaveDocumentRequest) (*DocumentResult, error)

	// CheckDuplicate is the advisory document-number uniqueness check.
	CheckDuplicate(ctx context.Context, req DuplicateCheckRequest) (*core.DuplicateCheckResult, error)

	// NextDocumentNumber reserves the next number of the type's series for the
	// financial year containing date (today when empty).
	NextDocumentNumber(ctx context.Context, docType, date string) (*NumberResult, error)

	// RenderDocumentPDF returns a printable PDF of a stored document.
	RenderDocumentPDF(ctx context.Context, docType string, id int) (*PDFResult, error)
}
