package core_test

import (
	"context"
	"errors"
	"testing"

	"procurement-docs/internal/core"
)

func TestFormatDocumentNumber(t *testing.T) {
	cases := []struct {
		docType core.DocumentType
		fy      int
		seq     int64
		want    string
	}{
		{core.DocumentTypePurchaseOrder, 2026, 1, "PO/26-27/0001"},
		{core.DocumentTypeInvoice, 2099, 12345, "INV/99-00/12345"},
		{core.DocumentTypeStoresReceipt, 2009, 42, "SRV/09-10/0042"},
	}
	for _, tc := range cases {
		if got := core.FormatDocumentNumber(tc.docType, tc.fy, tc.seq); got != tc.want {
			t.Errorf("FormatDocumentNumber(%s, %d, %d) = %q, want %q", tc.docType, tc.fy, tc.seq, got, tc.want)
		}
	}
}

func TestMemoryRepository_NextNumber(t *testing.T) {
	ctx := context.Background()
	repo := core.NewMemoryRepository(core.Document{
		ID: 1, Type: core.DocumentTypePurchaseOrder, Version: 1,
		Header: core.DocumentHeader{DocumentNumber: "PO/26-27/0002"},
	})

	var numberer core.DocumentNumberer = repo
	want := []string{"PO/26-27/0001", "PO/26-27/0003", "PO/26-27/0004"}
	for i, w := range want {
		got, err := numberer.NextNumber(ctx, core.DocumentTypePurchaseOrder, "2027-01-15")
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("call %d = %q, want %q", i+1, got, w)
		}
	}

	// Series are independent per type and financial year.
	if got, _ := numberer.NextNumber(ctx, core.DocumentTypeDeliveryChallan, "2027-01-15"); got != "DC/26-27/0001" {
		t.Errorf("DC series = %q", got)
	}
	if got, _ := numberer.NextNumber(ctx, core.DocumentTypePurchaseOrder, "2027-04-01"); got != "PO/27-28/0001" {
		t.Errorf("next financial year = %q", got)
	}

	if _, err := numberer.NextNumber(ctx, "XX", ""); !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("bad type err = %v", err)
	}
}
