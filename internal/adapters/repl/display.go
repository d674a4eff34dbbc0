package repl

import (
	"fmt"
	"io"
	"strings"

	"procurement-docs/internal/core"
	"procurement-docs/internal/render"
)

func printDocument(out io.Writer, store core.EditableDocumentStore, nf render.NumberFormatter) {
	doc := store.Snapshot()
	h := doc.Header
	number := h.DocumentNumber
	if number == "" {
		number = "(unnumbered)"
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 90))
	fmt.Fprintf(out, "  %s %s\n", strings.ToUpper(doc.Type.Title()), number)
	if doc.ID != 0 {
		fmt.Fprintf(out, "  ID %d, version %d\n", doc.ID, doc.Version)
	}
	fmt.Fprintln(out, strings.Repeat("=", 90))
	fmt.Fprintf(out, "  Date:       %s\n", h.DocumentDate)
	fmt.Fprintf(out, "  Party:      %s\n", h.PartyName)
	if h.PartyGSTIN != "" {
		fmt.Fprintf(out, "  GSTIN:      %s\n", h.PartyGSTIN)
	}
	if h.Reference != "" {
		fmt.Fprintf(out, "  Reference:  %s\n", h.Reference)
	}
	if h.Remarks != "" {
		fmt.Fprintf(out, "  Remarks:    %s\n", h.Remarks)
	}
	fmt.Fprintln(out, strings.Repeat("-", 90))

	if len(doc.Items) == 0 {
		fmt.Fprintln(out, "  No items.")
	} else {
		fmt.Fprintf(out, "  %-4s %-5s %-12s %-22s %-5s %10s %10s %10s %10s\n",
			"POS", "ITEM", "MATERIAL", "DESCRIPTION", "UNIT", "RATE", "ORDERED", "DELIVERED", "BALANCE")
		fmt.Fprintln(out, strings.Repeat("-", 90))
		for i, it := range doc.Items {
			t := it.Totals()
			fmt.Fprintf(out, "  %-4d %-5d %-12s %-22s %-5s %10s %10s %10s %10s\n",
				i+1, it.ItemNumber, clip(it.MaterialCode, 12), clip(it.Description, 22), clip(it.Unit, 5),
				nf.Money(it.Rate), nf.Quantity(t.Ordered), nf.Quantity(t.Delivered), nf.Quantity(t.Balance))
			for j, lot := range it.Deliveries {
				date := "-"
				if lot.DeliveryDate != nil {
					date = *lot.DeliveryDate
				}
				fmt.Fprintf(out, "       lot %d (#%d)  due %-10s  ordered %s  delivered %s  received %s\n",
					j+1, lot.LotNumber, date, nf.Quantity(lot.OrderedQuantity),
					nf.Quantity(lot.DeliveredQuantity), nf.Quantity(lot.ReceivedQuantity))
			}
			if v := core.LineValue(it); !v.IsZero() {
				fmt.Fprintf(out, "       value %s\n", nf.Money(v))
			}
		}
	}

	tt := store.DocumentTotals()
	fmt.Fprintln(out, strings.Repeat("-", 90))
	fmt.Fprintf(out, "  Ordered %s   Delivered %s   Received %s   Balance %s\n",
		nf.Quantity(tt.Ordered), nf.Quantity(tt.Delivered), nf.Quantity(tt.Received), nf.Quantity(tt.Balance))
	if !h.GrandTotal.IsZero() {
		fmt.Fprintf(out, "  Value %s   Tax %s   Grand total %s\n",
			nf.Money(h.TotalValue), nf.Money(h.TaxAmount), nf.Money(h.GrandTotal))
	}
	fmt.Fprintln(out, strings.Repeat("=", 90))
}

func printRegister(out io.Writer, t core.DocumentType, docs []core.DocumentSummary, nf render.NumberFormatter) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "  %s REGISTER\n", strings.ToUpper(t.Title()))
	fmt.Fprintln(out, strings.Repeat("=", 80))
	if len(docs) == 0 {
		fmt.Fprintln(out, "  No documents found.")
		fmt.Fprintln(out, strings.Repeat("=", 80))
		return
	}
	fmt.Fprintf(out, "  %-5s %-18s %-10s %-24s %5s %14s\n", "ID", "NUMBER", "DATE", "PARTY", "ITEMS", "GRAND TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, d := range docs {
		number := d.DocumentNumber
		if number == "" {
			number = "(unnumbered)"
		}
		fmt.Fprintf(out, "  %-5d %-18s %-10s %-24s %5d %14s\n",
			d.ID, clip(number, 18), d.DocumentDate, clip(d.PartyName, 24), d.ItemCount, nf.Money(d.GrandTotal))
	}
	fmt.Fprintln(out, strings.Repeat("=", 80))
}

func printDuplicate(out io.Writer, res core.DuplicateCheckResult) {
	if !res.Exists {
		fmt.Fprintln(out, "Document number is available.")
		return
	}
	switch res.ConflictType {
	case core.ConflictSameFinancialYear:
		fmt.Fprintf(out, "WARNING: number already used by document %d in the same financial year.\n", res.DocumentID)
	default:
		fmt.Fprintf(out, "Note: number was used by document %d in another financial year.\n", res.DocumentID)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
Documents
  list <type>                          Register of PO, DC, INV or SRV documents
  open <type> <id>                     Load a document (view mode)
  new <type>                           Start an unsaved document (edit mode)
  show                                 Print the open document with totals
  reload                               Fetch the stored copy again

Editing (positions are 1-based as shown)
  edit                                 Enter edit mode
  set header <field> <value>           e.g. set header party_name Acme Pumps
  set item <pos> <field> <value>       material_code, description, drawing_number, unit, rate
  set lot <pos> <lot> <field> <value>  ordered_quantity, delivered_quantity, received_quantity, delivery_date
  add item                             Append an empty item
  add lot <pos>                        Append a delivery lot to an item
  rm item <pos>                        Remove an item and its lots
  rm lot <pos> <lot>                   Remove one delivery lot
  number                               Assign the next number in the series
  check                                Check the document number for duplicates
  save                                 Persist and return to view mode
  cancel                               Discard edits

Output
  pdf <file>                           Write the open document as PDF

  help                                 Show this help
  exit                                 Leave the editor`)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
