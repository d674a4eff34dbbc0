package repl_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"procurement-docs/internal/adapters/repl"
	"procurement-docs/internal/core"

	"github.com/shopspring/decimal"
)

func runScript(t *testing.T, repo core.DocumentRepository, opts repl.Options, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	repl.Run(context.Background(), repo, in, &out, opts)
	return out.String()
}

func TestRun_CreateEditAndSave(t *testing.T) {
	repo := core.NewMemoryRepository()
	out := runScript(t, repo, repl.Options{ClampQuantities: true},
		"new po",
		"set header document_number PO/26/0100",
		"set header document_date 2026-06-01",
		"set header party_name Acme Pumps Pvt Ltd",
		"add item",
		"set item 1 description Flange 150NB",
		"set item 1 rate 1,250.50",
		"add lot 1",
		"set lot 1 1 ordered_quantity 100",
		"set lot 1 1 delivered_quantity 120",
		"add lot 1",
		"set lot 1 2 orderedQuantity 50",
		"set lot 1 2 delivery_date 2026-07-15",
		"save",
		"show",
		"exit",
	)

	for _, want := range []string{
		"New Purchase Order started in edit mode.",
		"Added lot 2 to item 1.",
		"delivered_quantity limited to 100.",
		"Saved PO PO/26/0100 (id 1, version 1).",
		"Ordered 150   Delivered 100   Received 0   Balance 50",
		"1,250.50",
		"due 2026-07-15",
		"Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	doc, err := repo.GetDocument(context.Background(), core.DocumentTypePurchaseOrder, 1)
	if err != nil {
		t.Fatalf("document not stored: %v", err)
	}
	if len(doc.Items) != 1 || len(doc.Items[0].Deliveries) != 2 {
		t.Fatalf("stored items = %+v", doc.Items)
	}
	if !doc.Items[0].Deliveries[0].DeliveredQuantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("delivered = %s, want clamped 100", doc.Items[0].Deliveries[0].DeliveredQuantity)
	}
	if doc.Header.PartyName != "Acme Pumps Pvt Ltd" {
		t.Errorf("party = %q", doc.Header.PartyName)
	}
}

func TestRun_GuardsAndDuplicateWarning(t *testing.T) {
	repo := core.NewMemoryRepository(core.Document{
		ID: 1, Type: core.DocumentTypePurchaseOrder, Version: 1,
		Header: core.DocumentHeader{DocumentNumber: "PO/26/0001", DocumentDate: "2026-05-01"},
		Items:  []core.LineItem{},
	})
	out := runScript(t, repo, repl.Options{},
		"set header remarks hello",
		"open po 1",
		"set header remarks hello",
		"edit",
		"set header document_number PO/26/0002",
		"set header colour red",
		"rm item 4",
		"new po",
		"set header document_number PO/26/0001",
		"set header document_date 2026-08-01",
		"check",
		"cancel",
		"frobnicate",
		"quit",
	)

	for _, want := range []string{
		"No document open.",
		"Not in edit mode. Type 'edit' first.",
		"Error: field is read-only",
		"Error: invalid field",
		"Error: index out of range",
		"WARNING: number already used by document 1 in the same financial year.",
		"Edits discarded.",
		"Unknown command: frobnicate",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

// racingRepo lets another writer save the document just before the first save
// from the editor lands.
type racingRepo struct {
	*core.MemoryRepository
	raced bool
}

func (r *racingRepo) SaveDocument(ctx context.Context, doc core.Document) (*core.Document, error) {
	if !r.raced {
		r.raced = true
		other, err := r.MemoryRepository.GetDocument(ctx, doc.Type, doc.ID)
		if err != nil {
			return nil, err
		}
		other.Header.Remarks = "theirs"
		if _, err := r.MemoryRepository.SaveDocument(ctx, *other); err != nil {
			return nil, err
		}
	}
	return r.MemoryRepository.SaveDocument(ctx, doc)
}

func TestRun_SaveConflictKeepsEdits(t *testing.T) {
	repo := &racingRepo{MemoryRepository: core.NewMemoryRepository(core.Document{
		ID: 2, Type: core.DocumentTypeDeliveryChallan, Version: 1,
		Header: core.DocumentHeader{DocumentNumber: "DC-2"},
		Items:  []core.LineItem{},
	})}
	out := runScript(t, repo, repl.Options{},
		"open dc 2",
		"edit",
		"set header remarks mine",
		"save",
		"show",
		"exit",
	)

	if !strings.Contains(out, "Use 'reload' to fetch the current copy.") {
		t.Errorf("missing conflict hint\n%s", out)
	}
	if !strings.Contains(out, "Remarks:    mine") {
		t.Errorf("local edit lost after conflict\n%s", out)
	}
}

func TestRun_AssignNumber(t *testing.T) {
	repo := core.NewMemoryRepository()
	out := runScript(t, repo, repl.Options{},
		"new dc",
		"set header document_date 2026-04-01",
		"number",
		"number",
		"save",
		"exit",
	)
	for _, want := range []string{
		"Document number DC/26-27/0001 assigned.",
		"Error: field is read-only",
		"Saved DC DC/26-27/0001 (id 1, version 1).",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRun_WritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "srv.pdf")
	out := runScript(t, core.NewMemoryRepository(), repl.Options{},
		"new srv",
		"add item",
		"pdf "+path,
	)
	if !strings.Contains(out, "Wrote "+path) {
		t.Fatalf("pdf not written\n%s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("file is not a PDF")
	}
}

// flakyCheckRepo answers the first duplicate check and fails every later one.
type flakyCheckRepo struct {
	*core.MemoryRepository
	mu    sync.Mutex
	calls int
}

func (r *flakyCheckRepo) CheckDuplicate(ctx context.Context, docType core.DocumentType, number, date string, excludeID int) (*core.DuplicateCheckResult, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	if n > 1 {
		return nil, errors.New("backend unavailable")
	}
	return r.MemoryRepository.CheckDuplicate(ctx, docType, number, date, excludeID)
}

func TestRun_CheckReportsOnceAndFailures(t *testing.T) {
	repo := &flakyCheckRepo{MemoryRepository: core.NewMemoryRepository(
		core.Document{ID: 1, Type: core.DocumentTypePurchaseOrder, Version: 1,
			Header: core.DocumentHeader{DocumentNumber: "PO-1", DocumentDate: "2026-05-01"}},
		core.Document{ID: 2, Type: core.DocumentTypePurchaseOrder, Version: 1,
			Header: core.DocumentHeader{DocumentNumber: "PO-1", DocumentDate: "2026-06-01"}},
	)}
	out := runScript(t, repo, repl.Options{},
		"open po 2",
		"check",
		"show",
		"check",
		"exit",
	)

	if n := strings.Count(out, "WARNING: number already used by document 1"); n != 1 {
		t.Errorf("warning printed %d times, want once\n%s", n, out)
	}
	if !strings.Contains(out, "Error: check failed for PO-1") {
		t.Errorf("failed check not reported\n%s", out)
	}
}
