package core

import (
	"context"
	"fmt"
	"sync"
)

// EditSession sequences repository I/O around one EditableDocumentStore: it seeds the
// store from a fetched snapshot, saves the current tree, and restores the original
// on cancel. The store itself never performs I/O.
type EditSession struct {
	store EditableDocumentStore
	repo  DocumentRepository

	mu       sync.Mutex
	original *Document // last snapshot received from the repository
}

// NewEditSession binds a store to a repository.
func NewEditSession(store EditableDocumentStore, repo DocumentRepository) *EditSession {
	return &EditSession{store: store, repo: repo}
}

// Store returns the session's store for presentation code.
func (s *EditSession) Store() EditableDocumentStore { return s.store }

// Open fetches the document and loads it into the store in view mode.
func (s *EditSession) Open(ctx context.Context, docType DocumentType, id int) error {
	doc, err := s.repo.GetDocument(ctx, docType, id)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}
	s.reset(*doc)
	return nil
}

// NewDocument starts an unsaved document of the given type in edit mode.
func (s *EditSession) NewDocument(docType DocumentType) {
	s.reset(Document{Type: docType, Items: []LineItem{}})
	s.store.SetEditMode(true)
}

// Reload re-fetches the currently open document, discarding local edits.
func (s *EditSession) Reload(ctx context.Context) error {
	s.mu.Lock()
	orig := s.original
	s.mu.Unlock()
	if orig == nil || orig.ID == 0 {
		return fmt.Errorf("reload: %w", ErrDocumentNotFound)
	}
	return s.Open(ctx, orig.Type, orig.ID)
}

// BeginEdit switches the store into edit mode.
func (s *EditSession) BeginEdit() {
	s.store.SetEditMode(true)
}

// Save persists the store's current tree. On success the canonical server copy is
// loaded, which also returns the store to view mode. On failure the store is left
// exactly as it was and a *PersistenceError is returned.
func (s *EditSession) Save(ctx context.Context) (*Document, error) {
	saved, err := s.repo.SaveDocument(ctx, s.store.Snapshot())
	if err != nil {
		return nil, &PersistenceError{Op: "save", Err: err}
	}
	s.reset(*saved)
	return saved, nil
}

// Cancel discards local edits by reloading the cached original snapshot.
func (s *EditSession) Cancel() {
	s.mu.Lock()
	orig := s.original
	s.mu.Unlock()
	if orig == nil {
		s.store.LoadDocument(Document{})
		return
	}
	s.store.LoadDocument(*orig)
}

// Dirty reports whether the store differs from the last loaded snapshot.
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	orig := s.original
	s.mu.Unlock()
	if orig == nil {
		return false
	}
	return !documentsEqual(*orig, s.store.Snapshot())
}

func (s *EditSession) reset(doc Document) {
	cp := doc.clone()
	s.mu.Lock()
	s.original = &cp
	s.mu.Unlock()
	s.store.LoadDocument(doc)
}

func documentsEqual(a, b Document) bool {
	if a.ID != b.ID || a.Type != b.Type || a.Version != b.Version || len(a.Items) != len(b.Items) {
		return false
	}
	ha, hb := a.Header, b.Header
	if ha.DocumentNumber != hb.DocumentNumber || ha.DocumentDate != hb.DocumentDate ||
		ha.PartyName != hb.PartyName || ha.PartyGSTIN != hb.PartyGSTIN ||
		ha.Reference != hb.Reference || ha.Remarks != hb.Remarks ||
		!ha.TotalValue.Equal(hb.TotalValue) || !ha.TaxAmount.Equal(hb.TaxAmount) ||
		!ha.GrandTotal.Equal(hb.GrandTotal) {
		return false
	}
	for i := range a.Items {
		ia, ib := a.Items[i], b.Items[i]
		if ia.ItemNumber != ib.ItemNumber || ia.MaterialCode != ib.MaterialCode ||
			ia.Description != ib.Description || ia.DrawingNumber != ib.DrawingNumber ||
			ia.Unit != ib.Unit || !ia.Rate.Equal(ib.Rate) || len(ia.Deliveries) != len(ib.Deliveries) {
			return false
		}
		for j := range ia.Deliveries {
			da, db := ia.Deliveries[j], ib.Deliveries[j]
			if da.LotNumber != db.LotNumber ||
				!da.OrderedQuantity.Equal(db.OrderedQuantity) ||
				!da.DeliveredQuantity.Equal(db.DeliveredQuantity) ||
				!da.ReceivedQuantity.Equal(db.ReceivedQuantity) ||
				optString(da.DeliveryDate) != optString(db.DeliveryDate) {
				return false
			}
		}
	}
	return true
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
