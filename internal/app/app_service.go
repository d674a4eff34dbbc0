package app

import (
	"context"
	"fmt"
	"strings"

	"procurement-docs/internal/core"
	"procurement-docs/internal/render"
)

// ErrNumberingUnsupported is returned when the repository has no number series.
var ErrNumberingUnsupported = core.ErrNumberingUnsupported

type appService struct {
	repo    core.DocumentRepository
	pdfOpts render.PDFOptions
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(repo core.DocumentRepository, pdfOpts render.PDFOptions) ApplicationService {
	return &appService{repo: repo, pdfOpts: pdfOpts}
}

// ListDocuments returns the register for one document type.
func (s *appService) ListDocuments(ctx context.Context, docType string) (*DocumentListResult, error) {
	t, err := core.ParseDocumentType(docType)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocuments(ctx, t)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []core.DocumentSummary{}
	}
	return &DocumentListResult{Type: t, Documents: docs}, nil
}

// GetDocument returns a snapshot with derived totals.
func (s *appService) GetDocument(ctx context.Context, docType string, id int) (*DocumentResult, error) {
	t, err := core.ParseDocumentType(docType)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.GetDocument(ctx, t, id)
	if err != nil {
		return nil, err
	}
	return newDocumentResult(*doc), nil
}

// SaveDocument validates and persists a snapshot, returning the canonical copy.
func (s *appService) SaveDocument(ctx context.Context, req SaveDocumentRequest) (*DocumentResult, error) {
	t, err := core.ParseDocumentType(req.Type)
	if err != nil {
		return nil, err
	}
	doc := req.Document
	if doc.Type != "" && doc.Type != t {
		return nil, fmt.Errorf("%w: body type %s does not match %s", core.ErrInvalidDocument, doc.Type, t)
	}
	doc.Type = t
	doc.ID = req.ID
	if doc.ID == 0 {
		doc.Version = 0
	}
	doc.Header.DocumentNumber = strings.TrimSpace(doc.Header.DocumentNumber)

	saved, err := s.repo.SaveDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	return newDocumentResult(*saved), nil
}

// CheckDuplicate runs the advisory uniqueness check.
func (s *appService) CheckDuplicate(ctx context.Context, req DuplicateCheckRequest) (*core.DuplicateCheckResult, error) {
	t, err := core.ParseDocumentType(req.Type)
	if err != nil {
		return nil, err
	}
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return &core.DuplicateCheckResult{}, nil
	}
	return s.repo.CheckDuplicate(ctx, t, number, req.Date, req.ExcludeID)
}

// NextDocumentNumber draws from the repository's number series when it has one.
func (s *appService) NextDocumentNumber(ctx context.Context, docType, date string) (*NumberResult, error) {
	t, err := core.ParseDocumentType(docType)
	if err != nil {
		return nil, err
	}
	numberer, ok := s.repo.(core.DocumentNumberer)
	if !ok {
		return nil, ErrNumberingUnsupported
	}
	number, err := numberer.NextNumber(ctx, t, date)
	if err != nil {
		return nil, err
	}
	return &NumberResult{Type: t, DocumentNumber: number}, nil
}

// RenderDocumentPDF prints a stored document.
func (s *appService) RenderDocumentPDF(ctx context.Context, docType string, id int) (*PDFResult, error) {
	res, err := s.GetDocument(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	data, err := render.DocumentPDF(res.Document, s.pdfOpts)
	if err != nil {
		return nil, err
	}
	name := res.Document.Header.DocumentNumber
	if name == "" {
		name = fmt.Sprintf("%d", res.Document.ID)
	}
	name = strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(name)
	return &PDFResult{
		Filename: fmt.Sprintf("%s-%s.pdf", res.Document.Type, name),
		Data:     data,
	}, nil
}
