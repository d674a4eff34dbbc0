package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"procurement-docs/internal/core"
	"procurement-docs/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping repository integration test")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := db.ApplyMigrations(ctx, pool, "../../migrations"); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE TABLE item_deliveries, document_items, procurement_documents, document_sequences RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

func TestDocumentRepository_RoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	repo := core.NewDocumentRepository(pool)

	date := "2026-07-01"
	doc := core.Document{
		Type: core.DocumentTypePurchaseOrder,
		Header: core.DocumentHeader{
			DocumentNumber: "PO/26/0001", DocumentDate: "2026-06-15",
			PartyName: "Shree Ram Engineering", PartyGSTIN: "27AAAPL1234C1ZV",
			GrandTotal: dec("11800.00"),
		},
		Items: []core.LineItem{
			{ItemNumber: 1, MaterialCode: "BRG-6205", Unit: "NOS", Rate: dec("118.00"), Deliveries: []core.DeliveryLot{
				{LotNumber: 1, OrderedQuantity: dec("60"), DeliveredQuantity: dec("60"), DeliveryDate: &date},
				{LotNumber: 2, OrderedQuantity: dec("40")},
			}},
			{ItemNumber: 3, MaterialCode: "SEAL-22", Unit: "SET", Deliveries: []core.DeliveryLot{}},
		},
	}

	saved, err := repo.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("SaveDocument insert: %v", err)
	}
	if saved.ID == 0 || saved.Version != 1 {
		t.Fatalf("saved = %+v", saved)
	}
	if len(saved.Items) != 2 || saved.Items[1].ItemNumber != 3 || len(saved.Items[0].Deliveries) != 2 {
		t.Fatalf("items not round-tripped: %+v", saved.Items)
	}
	lot := saved.Items[0].Deliveries[0]
	if lot.DeliveryDate == nil || *lot.DeliveryDate != date || !lot.DeliveredQuantity.Equal(dec("60")) {
		t.Errorf("lot = %+v", lot)
	}
	if saved.Items[0].Deliveries[1].DeliveryDate != nil {
		t.Error("empty delivery date should stay NULL")
	}

	t.Run("Update_KeepsNumberAndBumpsVersion", func(t *testing.T) {
		edit := *saved
		edit.Header.DocumentNumber = "PO/26/9999"
		edit.Items = edit.Items[1:]
		updated, err := repo.SaveDocument(ctx, edit)
		if err != nil {
			t.Fatalf("SaveDocument update: %v", err)
		}
		if updated.Version != 2 || updated.Header.DocumentNumber != "PO/26/0001" || len(updated.Items) != 1 {
			t.Errorf("updated = %+v", updated)
		}

		_, err = repo.SaveDocument(ctx, edit) // still version 1
		if !errors.Is(err, core.ErrVersionConflict) {
			t.Errorf("stale save err = %v, want ErrVersionConflict", err)
		}
	})

	t.Run("DuplicateCheck", func(t *testing.T) {
		res, err := repo.CheckDuplicate(ctx, core.DocumentTypePurchaseOrder, "PO/26/0001", "2027-01-10", 0)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Exists || res.ConflictType != core.ConflictSameFinancialYear || res.DocumentID != saved.ID {
			t.Errorf("res = %+v", res)
		}
		res, _ = repo.CheckDuplicate(ctx, core.DocumentTypePurchaseOrder, "PO/26/0001", "", saved.ID)
		if res.Exists {
			t.Error("excluded document reported as duplicate")
		}
		res, _ = repo.CheckDuplicate(ctx, core.DocumentTypeInvoice, "PO/26/0001", "", 0)
		if res.Exists {
			t.Error("number clash across document types")
		}

		dup := doc
		_, err = repo.SaveDocument(ctx, dup)
		if !errors.Is(err, core.ErrInvalidDocument) {
			t.Errorf("inserting duplicate number: %v", err)
		}
	})

	t.Run("ListAndNotFound", func(t *testing.T) {
		list, err := repo.ListDocuments(ctx, core.DocumentTypePurchaseOrder)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].ItemCount != 1 || list[0].Version != 2 {
			t.Errorf("list = %+v", list)
		}
		if _, err := repo.GetDocument(ctx, core.DocumentTypeDeliveryChallan, saved.ID); !errors.Is(err, core.ErrDocumentNotFound) {
			t.Errorf("wrong-type get err = %v", err)
		}
	})

	t.Run("NextNumber_SkipsTaken", func(t *testing.T) {
		numberer, ok := repo.(core.DocumentNumberer)
		if !ok {
			t.Fatal("PostgreSQL repository does not issue numbers")
		}
		manual := core.Document{
			Type:   core.DocumentTypeDeliveryChallan,
			Header: core.DocumentHeader{DocumentNumber: "DC/26-27/0001", DocumentDate: "2026-06-01"},
		}
		if _, err := repo.SaveDocument(ctx, manual); err != nil {
			t.Fatal(err)
		}
		n, err := numberer.NextNumber(ctx, core.DocumentTypeDeliveryChallan, "2026-06-15")
		if err != nil {
			t.Fatal(err)
		}
		if n != "DC/26-27/0002" {
			t.Errorf("next = %q, want DC/26-27/0002", n)
		}
		n, _ = numberer.NextNumber(ctx, core.DocumentTypeDeliveryChallan, "2027-04-01")
		if n != "DC/27-28/0001" {
			t.Errorf("new year = %q, want DC/27-28/0001", n)
		}
	})
}
