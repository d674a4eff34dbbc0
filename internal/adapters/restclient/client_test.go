package restclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"procurement-docs/internal/adapters/restclient"
	"procurement-docs/internal/adapters/web"
	"procurement-docs/internal/app"
	"procurement-docs/internal/core"
	"procurement-docs/internal/render"

	"github.com/shopspring/decimal"
)

func newClient(t *testing.T) *restclient.Client {
	t.Helper()
	repo := core.NewMemoryRepository(core.Document{
		ID: 1, Type: core.DocumentTypeStoresReceipt, Version: 1,
		Header: core.DocumentHeader{DocumentNumber: "SRV-001", DocumentDate: "2026-09-14"},
		Items: []core.LineItem{{ItemNumber: 1, Deliveries: []core.DeliveryLot{
			{LotNumber: 1, OrderedQuantity: decimal.NewFromInt(12), ReceivedQuantity: decimal.NewFromInt(12)},
		}}},
	})
	srv := httptest.NewServer(web.NewHandler(app.NewAppService(repo, render.PDFOptions{}), ""))
	t.Cleanup(srv.Close)
	return restclient.New(srv.URL+"/", srv.Client())
}

func TestClient_EditSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	sess := core.NewEditSession(core.NewEditableDocumentStore(), newClient(t))

	if err := sess.Open(ctx, core.DocumentTypeStoresReceipt, 1); err != nil {
		t.Fatalf("Open: %v", err)
	}
	store := sess.Store()
	sess.BeginEdit()
	if err := store.AddDelivery(0); err != nil {
		t.Fatal(err)
	}
	_ = store.UpdateDelivery(0, 1, core.LotOrderedQuantity, "1,000.5")
	_ = store.UpdateDelivery(0, 1, core.LotDeliveryDate, "2026-09-30")

	saved, err := sess.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Version != 2 || len(saved.Items[0].Deliveries) != 2 {
		t.Fatalf("saved = %+v", saved)
	}
	lot := saved.Items[0].Deliveries[1]
	if lot.LotNumber != 2 || !lot.OrderedQuantity.Equal(decimal.RequireFromString("1000.5")) {
		t.Errorf("new lot = %+v", lot)
	}
	if lot.DeliveryDate == nil || *lot.DeliveryDate != "2026-09-30" {
		t.Errorf("delivery date = %v", lot.DeliveryDate)
	}
	got, _ := store.TotalOrdered(0)
	if !got.Equal(decimal.RequireFromString("1012.5")) {
		t.Errorf("TotalOrdered after reload = %s", got)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	if _, err := c.GetDocument(ctx, core.DocumentTypeStoresReceipt, 42); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Errorf("missing document err = %v", err)
	}

	doc, err := c.GetDocument(ctx, core.DocumentTypeStoresReceipt, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SaveDocument(ctx, *doc); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := c.SaveDocument(ctx, *doc); !errors.Is(err, core.ErrVersionConflict) {
		t.Errorf("stale save err = %v", err)
	}

	doc.Items = append(doc.Items, core.LineItem{ItemNumber: 0})
	doc.Version = 2
	if _, err := c.SaveDocument(ctx, *doc); !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("invalid save err = %v", err)
	}
}

func TestClient_ListAndDuplicate(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	created, err := c.SaveDocument(ctx, core.Document{
		Type:   core.DocumentTypeStoresReceipt,
		Header: core.DocumentHeader{DocumentNumber: "SRV-002", DocumentDate: "2026-10-01"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 2 || created.Version != 1 {
		t.Errorf("created = %+v", created)
	}

	list, err := c.ListDocuments(ctx, core.DocumentTypeStoresReceipt)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 2 {
		t.Errorf("list = %+v", list)
	}

	number, err := c.NextNumber(ctx, core.DocumentTypeStoresReceipt, "2026-10-01")
	if err != nil {
		t.Fatal(err)
	}
	if number != "SRV/26-27/0001" {
		t.Errorf("next number = %q", number)
	}

	res, err := c.CheckDuplicate(ctx, core.DocumentTypeStoresReceipt, "SRV-001", "2025-12-01", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exists || res.DocumentID != 1 || res.ConflictType != core.ConflictOtherFinancialYear {
		t.Errorf("duplicate = %+v", res)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down","code":"INTERNAL_ERROR","request_id":"abc-1"}`))
	}))
	defer srv.Close()

	_, err := restclient.New(srv.URL, nil).GetDocument(context.Background(), core.DocumentTypePurchaseOrder, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	pe := &core.PersistenceError{Op: "load", Err: err}
	if !pe.Retryable() {
		t.Errorf("gateway failure should be retryable: %v", err)
	}
}

func TestClient_PermanentFailures(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusRequestEntityTooLarge, core.ErrInvalidDocument},
		{http.StatusNotImplemented, core.ErrNumberingUnsupported},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":"rejected","code":"X"}`))
		}))
		c := restclient.New(srv.URL, nil)

		_, err := c.SaveDocument(context.Background(), core.Document{Type: core.DocumentTypeInvoice})
		if tt.status == http.StatusNotImplemented {
			_, err = c.NextNumber(context.Background(), core.DocumentTypeInvoice, "")
		}
		srv.Close()

		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
		if pe := (&core.PersistenceError{Op: "save", Err: err}); pe.Retryable() {
			t.Errorf("status %d reported retryable", tt.status)
		}
	}
}
