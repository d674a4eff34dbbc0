package app_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"procurement-docs/internal/app"
	"procurement-docs/internal/core"
	"procurement-docs/internal/render"

	"github.com/shopspring/decimal"
)

func newService(docs ...core.Document) app.ApplicationService {
	return app.NewAppService(core.NewMemoryRepository(docs...), render.PDFOptions{CompanyName: "Shree Engineering"})
}

func invoice() core.Document {
	date := "2026-07-02"
	return core.Document{
		ID: 10, Type: core.DocumentTypeInvoice, Version: 4,
		Header: core.DocumentHeader{DocumentNumber: "INV/26/0044", DocumentDate: "2026-07-01", PartyName: "Rao Castings"},
		Items: []core.LineItem{
			{ItemNumber: 1, Rate: decimal.NewFromInt(250), Deliveries: []core.DeliveryLot{
				{LotNumber: 1, OrderedQuantity: decimal.NewFromInt(40), DeliveredQuantity: decimal.NewFromInt(15), DeliveryDate: &date},
				{LotNumber: 2, OrderedQuantity: decimal.NewFromInt(10), DeliveredQuantity: decimal.NewFromInt(10)},
			}},
			{ItemNumber: 2, Deliveries: []core.DeliveryLot{}},
		},
	}
}

func TestGetDocument_Totals(t *testing.T) {
	svc := newService(invoice())

	res, err := svc.GetDocument(context.Background(), "inv", 10)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(res.Totals) != 2 {
		t.Fatalf("totals = %d, want 2", len(res.Totals))
	}
	first := res.Totals[0]
	if !first.Ordered.Equal(decimal.NewFromInt(50)) || !first.Delivered.Equal(decimal.NewFromInt(25)) || !first.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("item 1 totals = %+v", first)
	}
	if !res.Totals[1].Ordered.IsZero() {
		t.Errorf("empty item ordered = %s", res.Totals[1].Ordered)
	}
	if !res.Summary.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("document balance = %s", res.Summary.Balance)
	}

	if _, err := svc.GetDocument(context.Background(), "BOGUS", 10); !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("bad type err = %v", err)
	}
	if _, err := svc.GetDocument(context.Background(), "PO", 10); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Errorf("wrong type err = %v", err)
	}
}

func TestSaveDocument(t *testing.T) {
	ctx := context.Background()
	svc := newService(invoice())

	res, err := svc.SaveDocument(ctx, app.SaveDocumentRequest{
		Type: "SRV",
		Document: core.Document{
			ID: 77, Version: 9,
			Header: core.DocumentHeader{DocumentNumber: "  SRV-1  "},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Document.ID != 11 || res.Document.Version != 1 || res.Document.Header.DocumentNumber != "SRV-1" {
		t.Errorf("created = %+v", res.Document)
	}
	if res.Document.Items == nil {
		t.Error("items should be an empty slice, not nil")
	}

	doc := invoice()
	doc.Header.Remarks = "revised"
	doc.Header.DocumentNumber = "INV/26/9999"
	saved, err := svc.SaveDocument(ctx, app.SaveDocumentRequest{Type: "INV", ID: 10, Document: doc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.Document.Version != 5 || saved.Document.Header.Remarks != "revised" {
		t.Errorf("updated = %+v", saved.Document)
	}
	if saved.Document.Header.DocumentNumber != "INV/26/0044" {
		t.Errorf("assigned number changed to %q", saved.Document.Header.DocumentNumber)
	}

	_, err = svc.SaveDocument(ctx, app.SaveDocumentRequest{Type: "INV", ID: 10, Document: doc})
	if !errors.Is(err, core.ErrVersionConflict) {
		t.Errorf("stale save err = %v", err)
	}

	doc.Type = core.DocumentTypePurchaseOrder
	_, err = svc.SaveDocument(ctx, app.SaveDocumentRequest{Type: "INV", ID: 10, Document: doc})
	if !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("type mismatch err = %v", err)
	}
}

func TestCheckDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newService(invoice())

	cases := []struct {
		name    string
		req     app.DuplicateCheckRequest
		exists  bool
		conflic core.ConflictType
	}{
		{"same year", app.DuplicateCheckRequest{Type: "INV", Number: "INV/26/0044", Date: "2027-03-31"}, true, core.ConflictSameFinancialYear},
		{"next year", app.DuplicateCheckRequest{Type: "INV", Number: "INV/26/0044", Date: "2027-04-01"}, true, core.ConflictOtherFinancialYear},
		{"excluded", app.DuplicateCheckRequest{Type: "INV", Number: "INV/26/0044", ExcludeID: 10}, false, ""},
		{"blank", app.DuplicateCheckRequest{Type: "INV", Number: "   "}, false, ""},
		{"other type", app.DuplicateCheckRequest{Type: "DC", Number: "INV/26/0044"}, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.CheckDuplicate(ctx, tc.req)
			if err != nil {
				t.Fatal(err)
			}
			if res.Exists != tc.exists || res.ConflictType != tc.conflic {
				t.Errorf("got %+v", res)
			}
		})
	}
}

func TestRenderDocumentPDF(t *testing.T) {
	svc := newService(invoice())

	res, err := svc.RenderDocumentPDF(context.Background(), "INV", 10)
	if err != nil {
		t.Fatalf("RenderDocumentPDF: %v", err)
	}
	if res.Filename != "INV-INV-26-0044.pdf" {
		t.Errorf("filename = %q", res.Filename)
	}
	if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

// plainRepo hides the MemoryRepository's number series.
type plainRepo struct{ core.DocumentRepository }

func TestNextDocumentNumber(t *testing.T) {
	ctx := context.Background()
	svc := newService(invoice())

	res, err := svc.NextDocumentNumber(ctx, "inv", "2026-07-10")
	if err != nil {
		t.Fatal(err)
	}
	if res.DocumentNumber != "INV/26-27/0001" {
		t.Errorf("number = %q", res.DocumentNumber)
	}

	bare := app.NewAppService(plainRepo{core.NewMemoryRepository()}, render.PDFOptions{})
	if _, err := bare.NextDocumentNumber(ctx, "INV", ""); !errors.Is(err, app.ErrNumberingUnsupported) {
		t.Errorf("err = %v, want ErrNumberingUnsupported", err)
	}
}
