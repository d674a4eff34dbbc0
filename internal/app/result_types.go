package app

import "procurement-docs/internal/core"

// DocumentResult is returned by GetDocument and SaveDocument.
type DocumentResult struct {
	Document core.Document     `json:"document"`
	Totals   []core.ItemTotals `json:"item_totals"` // parallel to Document.Items
	Summary  core.ItemTotals   `json:"document_totals"`
}

// DocumentListResult is returned by ListDocuments.
type DocumentListResult struct {
	Type      core.DocumentType      `json:"type"`
	Documents []core.DocumentSummary `json:"documents"`
}

// NumberResult is returned by NextDocumentNumber.
type NumberResult struct {
	Type           core.DocumentType `json:"type"`
	DocumentNumber string            `json:"document_number"`
}

// PDFResult is returned by RenderDocumentPDF.
type PDFResult struct {
	Filename string
	Data     []byte
}

func newDocumentResult(doc core.Document) *DocumentResult {
	totals := make([]core.ItemTotals, len(doc.Items))
	for i, it := range doc.Items {
		totals[i] = it.Totals()
	}
	return &DocumentResult{
		Document: doc,
		Totals:   totals,
		Summary:  core.DocumentTotals(doc),
	}
}
