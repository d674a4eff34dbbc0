package app

import "procurement-docs/internal/core"

// SaveDocumentRequest is the input for creating or updating a document.
// Type in the path wins over Document.Type when both are present.
type SaveDocumentRequest struct {
	Type     string
	ID       int // 0 creates a new document
	Document core.Document
}

// DuplicateCheckRequest is the input for the document-number uniqueness check.
type DuplicateCheckRequest struct {
	Type      string
	Number    string
	Date      string // YYYY-MM-DD, optional
	ExcludeID int    // the document being edited, if any
}
