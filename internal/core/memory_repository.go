package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository is a process-local DocumentRepository with the same version and
// numbering rules as the PostgreSQL one. The editor uses it for scratch sessions
// without a backend, and tests use it as a fake.
type MemoryRepository struct {
	mu        sync.RWMutex
	docs      map[int]Document
	nextID    int
	sequences map[string]int64 // "TYPE/FY" -> last issued number
}

// NewMemoryRepository returns a repository seeded with docs. Seeded documents keep
// their IDs and versions.
func NewMemoryRepository(docs ...Document) *MemoryRepository {
	r := &MemoryRepository{docs: make(map[int]Document), nextID: 1, sequences: make(map[string]int64)}
	for _, d := range docs {
		r.docs[d.ID] = d.clone()
		if d.ID >= r.nextID {
			r.nextID = d.ID + 1
		}
	}
	return r
}

func (r *MemoryRepository) GetDocument(_ context.Context, docType DocumentType, id int) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[id]
	if !ok || d.Type != docType {
		return nil, fmt.Errorf("%s %d: %w", docType, id, ErrDocumentNotFound)
	}
	out := d.clone()
	return &out, nil
}

func (r *MemoryRepository) ListDocuments(_ context.Context, docType DocumentType) ([]DocumentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DocumentSummary
	for _, d := range r.docs {
		if d.Type != docType {
			continue
		}
		out = append(out, DocumentSummary{
			ID:             d.ID,
			Type:           d.Type,
			DocumentNumber: d.Header.DocumentNumber,
			DocumentDate:   d.Header.DocumentDate,
			PartyName:      d.Header.PartyName,
			GrandTotal:     d.Header.GrandTotal,
			ItemCount:      len(d.Items),
			Version:        d.Version,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MemoryRepository) SaveDocument(_ context.Context, doc Document) (*Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc = doc.clone()
	if doc.ID != 0 {
		cur, ok := r.docs[doc.ID]
		if !ok || cur.Type != doc.Type {
			return nil, fmt.Errorf("%s %d: %w", doc.Type, doc.ID, ErrDocumentNotFound)
		}
		if cur.Version != doc.Version {
			return nil, fmt.Errorf("%s %d version %d: %w", doc.Type, doc.ID, doc.Version, ErrVersionConflict)
		}
		// The stored number wins before uniqueness is checked.
		if cur.Header.DocumentNumber != "" {
			doc.Header.DocumentNumber = cur.Header.DocumentNumber
		}
	}

	for _, other := range r.docs {
		if other.ID != doc.ID && other.Type == doc.Type && doc.Header.DocumentNumber != "" &&
			other.Header.DocumentNumber == doc.Header.DocumentNumber {
			return nil, fmt.Errorf("%w: document number %q already exists", ErrInvalidDocument, doc.Header.DocumentNumber)
		}
	}

	if doc.ID == 0 {
		doc.ID = r.nextID
		r.nextID++
		doc.Version = 1
	} else {
		doc.Version++
	}
	if doc.Items == nil {
		doc.Items = []LineItem{}
	}
	r.docs[doc.ID] = doc
	out := doc.clone()
	return &out, nil
}

func (r *MemoryRepository) CheckDuplicate(_ context.Context, docType DocumentType, number, date string, excludeID int) (*DuplicateCheckResult, error) {
	if number == "" {
		return &DuplicateCheckResult{}, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		d := r.docs[id]
		if d.Type == docType && d.ID != excludeID && d.Header.DocumentNumber == number {
			return &DuplicateCheckResult{
				Exists:       true,
				ConflictType: ClassifyConflict(d.Header.DocumentDate, date),
				DocumentID:   d.ID,
			}, nil
		}
	}
	return &DuplicateCheckResult{}, nil
}
