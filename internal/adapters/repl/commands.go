package repl

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"procurement-docs/internal/core"
	"procurement-docs/internal/render"

	"github.com/shopspring/decimal"
)

// set handles:
//
//	set header <field> <value...>
//	set item <item#> <field> <value...>
//	set lot <item#> <lot#> <field> <value...>
//
// Item and lot positions are 1-based as displayed by show.
func (e *editor) set(args []string) error {
	if !e.store.EditMode() {
		fmt.Fprintln(e.out, "Not in edit mode. Type 'edit' first.")
		return nil
	}
	if len(args) < 2 {
		fmt.Fprintln(e.out, "Usage: set header|item|lot ...  (type help for details)")
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "header", "hdr":
		field, err := core.ParseHeaderField(args[1])
		if err != nil {
			return err
		}
		return e.store.UpdateHeader(field, strings.Join(args[2:], " "))

	case "item":
		if len(args) < 3 {
			fmt.Fprintln(e.out, "Usage: set item <item#> <field> <value>")
			return nil
		}
		idx, err := position(args[1])
		if err != nil {
			return err
		}
		field, err := core.ParseItemField(args[2])
		if err != nil {
			return err
		}
		return e.store.UpdateItem(idx, field, strings.Join(args[3:], " "))

	case "lot":
		if len(args) < 4 {
			fmt.Fprintln(e.out, "Usage: set lot <item#> <lot#> <field> <value>")
			return nil
		}
		idx, err := position(args[1])
		if err != nil {
			return err
		}
		lotIdx, err := position(args[2])
		if err != nil {
			return err
		}
		field, err := core.ParseLotField(args[3])
		if err != nil {
			return err
		}
		value := strings.Join(args[4:], " ")
		if e.opts.ClampQuantities {
			if value, err = e.clampLot(idx, lotIdx, field, value); err != nil {
				return err
			}
		}
		return e.store.UpdateDelivery(idx, lotIdx, field, value)

	default:
		fmt.Fprintf(e.out, "Unknown target %q. Use header, item or lot.\n", args[0])
	}
	return nil
}

// clampLot keeps delivered within [0, ordered] and received within [0, delivered].
func (e *editor) clampLot(idx, lotIdx int, field core.LotField, value string) (string, error) {
	if field != core.LotDeliveredQuantity && field != core.LotReceivedQuantity {
		return value, nil
	}
	it, err := e.store.Item(idx)
	if err != nil {
		return "", err
	}
	if lotIdx < 0 || lotIdx >= len(it.Deliveries) {
		return "", &core.IndexOutOfRangeError{Kind: "lot", Index: lotIdx, Len: len(it.Deliveries)}
	}
	lot := it.Deliveries[lotIdx]
	upper := lot.OrderedQuantity
	if field == core.LotReceivedQuantity {
		upper = lot.DeliveredQuantity
	}
	zero := decimal.Zero
	v := core.CoerceDecimal(value)
	clamped := core.ClampDecimal(v, &zero, &upper)
	if !clamped.Equal(v) {
		fmt.Fprintf(e.out, "%s limited to %s.\n", field, e.opts.Numbers.Quantity(clamped))
	}
	return clamped.String(), nil
}

// add handles "add item" and "add lot <item#>".
func (e *editor) add(args []string) error {
	if !e.store.EditMode() {
		fmt.Fprintln(e.out, "Not in edit mode. Type 'edit' first.")
		return nil
	}
	if len(args) < 1 {
		fmt.Fprintln(e.out, "Usage: add item | add lot <item#>")
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "item":
		e.store.AddItem()
		n := e.store.ItemCount()
		it, _ := e.store.Item(n - 1)
		fmt.Fprintf(e.out, "Added item %d at position %d.\n", it.ItemNumber, n)
	case "lot":
		if len(args) < 2 {
			fmt.Fprintln(e.out, "Usage: add lot <item#>")
			return nil
		}
		idx, err := position(args[1])
		if err != nil {
			return err
		}
		if err := e.store.AddDelivery(idx); err != nil {
			return err
		}
		it, _ := e.store.Item(idx)
		lot := it.Deliveries[len(it.Deliveries)-1]
		fmt.Fprintf(e.out, "Added lot %d to item %d.\n", lot.LotNumber, it.ItemNumber)
	default:
		fmt.Fprintf(e.out, "Unknown target %q. Use item or lot.\n", args[0])
	}
	return nil
}

// remove handles "rm item <item#>" and "rm lot <item#> <lot#>".
func (e *editor) remove(args []string) error {
	if !e.store.EditMode() {
		fmt.Fprintln(e.out, "Not in edit mode. Type 'edit' first.")
		return nil
	}
	if len(args) < 2 {
		fmt.Fprintln(e.out, "Usage: rm item <item#> | rm lot <item#> <lot#>")
		return nil
	}
	idx, err := position(args[1])
	if err != nil {
		return err
	}
	switch strings.ToLower(args[0]) {
	case "item":
		return e.store.RemoveItem(idx)
	case "lot":
		if len(args) < 3 {
			fmt.Fprintln(e.out, "Usage: rm lot <item#> <lot#>")
			return nil
		}
		lotIdx, err := position(args[2])
		if err != nil {
			return err
		}
		return e.store.RemoveDelivery(idx, lotIdx)
	default:
		fmt.Fprintf(e.out, "Unknown target %q. Use item or lot.\n", args[0])
	}
	return nil
}

const noNumbering = "This backend does not issue document numbers; enter one with 'set header document_number'."

// assignNumber fills an empty document number from the repository's series.
func (e *editor) assignNumber() error {
	if !e.store.EditMode() {
		fmt.Fprintln(e.out, "Not in edit mode. Type 'edit' first.")
		return nil
	}
	h := e.store.Header()
	if h.DocumentNumber != "" {
		return core.ErrReadOnlyField
	}
	numberer, ok := e.repo.(core.DocumentNumberer)
	if !ok {
		fmt.Fprintln(e.out, noNumbering)
		return nil
	}
	number, err := numberer.NextNumber(e.ctx, e.store.Snapshot().Type, h.DocumentDate)
	if errors.Is(err, core.ErrNumberingUnsupported) {
		fmt.Fprintln(e.out, noNumbering)
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.store.UpdateHeader(core.HeaderDocumentNumber, number); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Document number %s assigned.\n", number)
	return nil
}

// writePDF prints the current tree, including unsaved edits.
func (e *editor) writePDF(path string) error {
	opts := e.opts.PDF
	opts.Numbers = e.opts.Numbers
	data, err := render.DocumentPDF(e.store.Snapshot(), opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	fmt.Fprintf(e.out, "Wrote %s (%d bytes).\n", path, len(data))
	return nil
}

// position converts a 1-based display position to a store index.
func position(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return n - 1, nil
}
