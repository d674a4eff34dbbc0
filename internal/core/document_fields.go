package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HeaderField enumerates the editable header fields.
type HeaderField int

const (
	HeaderDocumentNumber HeaderField = iota
	HeaderDocumentDate
	HeaderPartyName
	HeaderPartyGSTIN
	HeaderReference
	HeaderRemarks
	HeaderTotalValue
	HeaderTaxAmount
	HeaderGrandTotal
)

var headerFieldNames = []string{
	HeaderDocumentNumber: "document_number",
	HeaderDocumentDate:   "document_date",
	HeaderPartyName:      "party_name",
	HeaderPartyGSTIN:     "party_gstin",
	HeaderReference:      "reference",
	HeaderRemarks:        "remarks",
	HeaderTotalValue:     "total_value",
	HeaderTaxAmount:      "tax_amount",
	HeaderGrandTotal:     "grand_total",
}

func (f HeaderField) String() string {
	if f < 0 || int(f) >= len(headerFieldNames) {
		return "unknown"
	}
	return headerFieldNames[f]
}

// ParseHeaderField maps a snake_case field name to its HeaderField.
func ParseHeaderField(name string) (HeaderField, error) {
	if i, ok := lookupField(headerFieldNames, name); ok {
		return HeaderField(i), nil
	}
	return 0, &InvalidFieldError{Entity: "header", Field: name}
}

// ItemField enumerates the scalar line-item fields.
type ItemField int

const (
	ItemMaterialCode ItemField = iota
	ItemDescription
	ItemDrawingNumber
	ItemUnit
	ItemRate
)

var itemFieldNames = []string{
	ItemMaterialCode:  "material_code",
	ItemDescription:   "description",
	ItemDrawingNumber: "drawing_number",
	ItemUnit:          "unit",
	ItemRate:          "rate",
}

func (f ItemField) String() string {
	if f < 0 || int(f) >= len(itemFieldNames) {
		return "unknown"
	}
	return itemFieldNames[f]
}

// ParseItemField maps a snake_case field name to its ItemField.
func ParseItemField(name string) (ItemField, error) {
	if i, ok := lookupField(itemFieldNames, name); ok {
		return ItemField(i), nil
	}
	return 0, &InvalidFieldError{Entity: "item", Field: name}
}

// LotField enumerates the delivery-lot fields.
type LotField int

const (
	LotOrderedQuantity LotField = iota
	LotDeliveredQuantity
	LotReceivedQuantity
	LotDeliveryDate
)

var lotFieldNames = []string{
	LotOrderedQuantity:   "ordered_quantity",
	LotDeliveredQuantity: "delivered_quantity",
	LotReceivedQuantity:  "received_quantity",
	LotDeliveryDate:      "delivery_date",
}

func (f LotField) String() string {
	if f < 0 || int(f) >= len(lotFieldNames) {
		return "unknown"
	}
	return lotFieldNames[f]
}

// ParseLotField maps a snake_case field name to its LotField.
func ParseLotField(name string) (LotField, error) {
	if i, ok := lookupField(lotFieldNames, name); ok {
		return LotField(i), nil
	}
	return 0, &InvalidFieldError{Entity: "lot", Field: name}
}

// lookupField also accepts camelCase and dashed spellings ("deliveredQuantity",
// "delivered-quantity") since REPL users type them.
func lookupField(names []string, name string) (int, bool) {
	key := normalizeFieldName(name)
	for i, n := range names {
		if strings.ReplaceAll(n, "_", "") == key {
			return i, true
		}
	}
	return 0, false
}

func normalizeFieldName(name string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

// CoerceDecimal parses a numeric form value. Empty or unparsable input becomes zero,
// as does an exponent no column could hold; thousands separators are tolerated.
func CoerceDecimal(value string) decimal.Decimal {
	s := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !inNumericRange(d) {
		return decimal.Zero
	}
	return d
}

// CoerceDate returns a normalised YYYY-MM-DD date, or nil for empty or unparsable input.
func CoerceDate(value string) *string {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	out := t.Format("2006-01-02")
	return &out
}

// ClampDecimal bounds v by the optional min and max. Editing surfaces apply their own
// clamp policy before calling the store.
func ClampDecimal(v decimal.Decimal, min, max *decimal.Decimal) decimal.Decimal {
	if min != nil && v.LessThan(*min) {
		v = *min
	}
	if max != nil && v.GreaterThan(*max) {
		v = *max
	}
	return v
}
