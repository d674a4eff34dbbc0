package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DocumentType identifies which procurement register a document belongs to.
type DocumentType string

const (
	DocumentTypePurchaseOrder   DocumentType = "PO"
	DocumentTypeDeliveryChallan DocumentType = "DC"
	DocumentTypeInvoice         DocumentType = "INV"
	DocumentTypeStoresReceipt   DocumentType = "SRV"
)

// ParseDocumentType accepts the short code in any case.
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(strings.ToUpper(strings.TrimSpace(s))); t {
	case DocumentTypePurchaseOrder, DocumentTypeDeliveryChallan, DocumentTypeInvoice, DocumentTypeStoresReceipt:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidDocument, s)
}

// Title returns the printed name of the document type.
func (t DocumentType) Title() string {
	switch t {
	case DocumentTypePurchaseOrder:
		return "Purchase Order"
	case DocumentTypeDeliveryChallan:
		return "Delivery Challan"
	case DocumentTypeInvoice:
		return "GST Invoice"
	case DocumentTypeStoresReceipt:
		return "Stores Receipt Voucher"
	default:
		return string(t)
	}
}

// Document is the full editable tree of one procurement document. It is also the
// snapshot shape exchanged with the REST API.
type Document struct {
	ID      int            `json:"id"`
	Type    DocumentType   `json:"type"`
	Version int            `json:"version"` // optimistic-concurrency token, 0 for unsaved
	Header  DocumentHeader `json:"header"`
	Items   []LineItem     `json:"items"`
}

// DocumentHeader holds the scalar header fields.
type DocumentHeader struct {
	DocumentNumber string          `json:"document_number"` // read-only once assigned
	DocumentDate   string          `json:"document_date"`   // YYYY-MM-DD
	PartyName      string          `json:"party_name"`
	PartyGSTIN     string          `json:"party_gstin"`
	Reference      string          `json:"reference"`
	Remarks        string          `json:"remarks"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// LineItem is one procurable line. Totals are derived from Deliveries and never stored.
type LineItem struct {
	ItemNumber    int             `json:"item_number"`
	MaterialCode  string          `json:"material_code"`
	Description   string          `json:"description"`
	DrawingNumber string          `json:"drawing_number"`
	Unit          string          `json:"unit"`
	Rate          decimal.Decimal `json:"rate"`
	Deliveries    []DeliveryLot   `json:"deliveries"`
}

// DeliveryLot is one scheduled or received tranche against a line item.
type DeliveryLot struct {
	LotNumber         int             `json:"lot_number"`
	OrderedQuantity   decimal.Decimal `json:"ordered_quantity"`
	DeliveredQuantity decimal.Decimal `json:"delivered_quantity"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	DeliveryDate      *string         `json:"delivery_date,omitempty"` // YYYY-MM-DD
}

// ItemTotals are the aggregates derived from a set of delivery lots.
type ItemTotals struct {
	Ordered   decimal.Decimal `json:"total_ordered"`
	Delivered decimal.Decimal `json:"total_delivered"`
	Received  decimal.Decimal `json:"total_received"`
	Balance   decimal.Decimal `json:"total_balance"`
}

// Totals computes the aggregates for the item. Balance is floored at zero:
// over-delivery never produces a negative pending quantity.
func (it LineItem) Totals() ItemTotals {
	var t ItemTotals
	for _, d := range it.Deliveries {
		t.Ordered = t.Ordered.Add(d.OrderedQuantity)
		t.Delivered = t.Delivered.Add(d.DeliveredQuantity)
		t.Received = t.Received.Add(d.ReceivedQuantity)
	}
	t.Balance = decimal.Max(decimal.Zero, t.Ordered.Sub(t.Delivered))
	return t
}

// LineValue is rate × total ordered quantity. The store never writes it back;
// presentation code computes it on demand.
func LineValue(it LineItem) decimal.Decimal {
	return it.Rate.Mul(it.Totals().Ordered)
}

// clone returns a deep copy so that callers never share slices with the store.
func (d Document) clone() Document {
	out := d
	if d.Items != nil {
		out.Items = make([]LineItem, len(d.Items))
		for i, it := range d.Items {
			out.Items[i] = it.clone()
		}
	}
	return out
}

func (it LineItem) clone() LineItem {
	out := it
	if it.Deliveries != nil {
		out.Deliveries = make([]DeliveryLot, len(it.Deliveries))
		for i, d := range it.Deliveries {
			out.Deliveries[i] = d.clone()
		}
	}
	return out
}

func (d DeliveryLot) clone() DeliveryLot {
	out := d
	if d.DeliveryDate != nil {
		date := *d.DeliveryDate
		out.DeliveryDate = &date
	}
	return out
}

// DocumentSummary is one row of a register listing.
type DocumentSummary struct {
	ID             int             `json:"id"`
	Type           DocumentType    `json:"type"`
	DocumentNumber string          `json:"document_number"`
	DocumentDate   string          `json:"document_date"`
	PartyName      string          `json:"party_name"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	ItemCount      int             `json:"item_count"`
	Version        int             `json:"version"`
}

// ConflictType qualifies a duplicate document number.
type ConflictType string

const (
	ConflictSameFinancialYear  ConflictType = "SAME_FINANCIAL_YEAR"
	ConflictOtherFinancialYear ConflictType = "OTHER_FINANCIAL_YEAR"
)

// DuplicateCheckResult is the advisory answer to "is this number already used?".
type DuplicateCheckResult struct {
	Exists       bool         `json:"exists"`
	ConflictType ConflictType `json:"conflict_type,omitempty"`
	DocumentID   int          `json:"document_id,omitempty"`
}

// DocumentRepository persists document snapshots.
type DocumentRepository interface {
	// GetDocument returns the stored tree. Returns ErrDocumentNotFound when absent.
	GetDocument(ctx context.Context, docType DocumentType, id int) (*Document, error)

	// ListDocuments returns summaries for a register, newest first.
	ListDocuments(ctx context.Context, docType DocumentType) ([]DocumentSummary, error)

	// SaveDocument inserts (ID == 0) or replaces the stored tree and returns the
	// canonical stored document. Updates must carry the current Version; a stale
	// version yields ErrVersionConflict.
	SaveDocument(ctx context.Context, doc Document) (*Document, error)

	// CheckDuplicate reports whether number is already used by another document of
	// the same type. excludeID skips the document being edited.
	CheckDuplicate(ctx context.Context, docType DocumentType, number, date string, excludeID int) (*DuplicateCheckResult, error)
}

// Validate checks the structural rules a stored document must satisfy: a known type,
// positive unique item numbers, positive unique lot numbers per item, and
// well-formed dates.
func (d Document) Validate() error {
	if _, err := ParseDocumentType(string(d.Type)); err != nil {
		return err
	}
	if d.Header.DocumentDate != "" && CoerceDate(d.Header.DocumentDate) == nil {
		return fmt.Errorf("%w: document date %q is not YYYY-MM-DD", ErrInvalidDocument, d.Header.DocumentDate)
	}
	h := d.Header
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{{"total value", h.TotalValue}, {"tax amount", h.TaxAmount}, {"grand total", h.GrandTotal}} {
		if err := checkNumeric(f.name, f.v, moneyScale); err != nil {
			return err
		}
	}
	seenItems := make(map[int]bool, len(d.Items))
	for i, it := range d.Items {
		if it.ItemNumber <= 0 {
			return fmt.Errorf("%w: item %d has no item number", ErrInvalidDocument, i+1)
		}
		if seenItems[it.ItemNumber] {
			return fmt.Errorf("%w: item number %d is used twice", ErrInvalidDocument, it.ItemNumber)
		}
		seenItems[it.ItemNumber] = true
		if err := checkNumeric(fmt.Sprintf("item %d rate", it.ItemNumber), it.Rate, rateScale); err != nil {
			return err
		}

		seenLots := make(map[int]bool, len(it.Deliveries))
		for _, lot := range it.Deliveries {
			if lot.LotNumber <= 0 || seenLots[lot.LotNumber] {
				return fmt.Errorf("%w: item %d has invalid or repeated lot number %d", ErrInvalidDocument, it.ItemNumber, lot.LotNumber)
			}
			seenLots[lot.LotNumber] = true
			for _, q := range []struct {
				name string
				v    decimal.Decimal
			}{{"ordered", lot.OrderedQuantity}, {"delivered", lot.DeliveredQuantity}, {"received", lot.ReceivedQuantity}} {
				name := fmt.Sprintf("item %d lot %d %s quantity", it.ItemNumber, lot.LotNumber, q.name)
				if err := checkNumeric(name, q.v, quantityScale); err != nil {
					return err
				}
			}
			if lot.DeliveryDate != nil && CoerceDate(*lot.DeliveryDate) == nil {
				return fmt.Errorf("%w: item %d lot %d delivery date %q is not YYYY-MM-DD",
					ErrInvalidDocument, it.ItemNumber, lot.LotNumber, *lot.DeliveryDate)
			}
		}
	}
	return nil
}

// Stored amounts are NUMERIC(18, scale).
const (
	numericPrecision = 18
	moneyScale       = 2
	quantityScale    = 3
	rateScale        = 4

	// maxDecimalPlaces bounds the exponent of accepted input; anything finer is noise.
	maxDecimalPlaces = 20
)

// inNumericRange reports whether v's exponent is small enough to format or round
// cheaply. decimal accepts exponents up to 2^31, which would expand to gigabytes.
func inNumericRange(v decimal.Decimal) bool {
	e := v.Exponent()
	return v.IsZero() || (e >= -maxDecimalPlaces && e <= numericPrecision)
}

// checkNumeric rejects values that would overflow a NUMERIC(18, scale) column once
// rounded to scale.
func checkNumeric(name string, v decimal.Decimal, scale int32) error {
	if !inNumericRange(v) {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidDocument, name)
	}
	limit := decimal.New(1, numericPrecision-scale)
	if v.Round(scale).Abs().GreaterThanOrEqual(limit) {
		return fmt.Errorf("%w: %s %s exceeds %d integer digits", ErrInvalidDocument, name, v.String(), numericPrecision-scale)
	}
	return nil
}
