package render

import (
	"bytes"
	"fmt"
	"strings"

	"procurement-docs/internal/core"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// PDFOptions controls the printout.
type PDFOptions struct {
	CompanyName string
	// QRBaseURL, when set, prints a QR code linking to QRBaseURL/<type>/<id>.
	QRBaseURL string
	Numbers   NumberFormatter
}

// column widths in mm for the item table (A4 portrait, 10mm margins)
var itemCols = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Material", 28, "L"},
	{"Description", 52, "L"},
	{"Unit", 14, "C"},
	{"Rate", 22, "R"},
	{"Ordered", 22, "R"},
	{"Delivered", 22, "R"},
	{"Balance", 20, "R"},
}

// DocumentPDF renders a document with its items and delivery schedule.
func DocumentPDF(doc core.Document, opts PDFOptions) ([]byte, error) {
	nf := opts.Numbers

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(fmt.Sprintf("%s %s", doc.Type.Title(), doc.Header.DocumentNumber), true)
	pdf.AddPage()

	if opts.CompanyName != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 7, opts.CompanyName, "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, strings.ToUpper(doc.Type.Title()), "", 1, "L", false, 0, "")

	if opts.QRBaseURL != "" && doc.ID != 0 {
		link := fmt.Sprintf("%s/%s/%d", strings.TrimRight(opts.QRBaseURL, "/"), doc.Type, doc.ID)
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode QR code: %w", err)
		}
		imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("doc_qr", imgOptions, bytes.NewReader(png))
		pdf.ImageOptions("doc_qr", 175, 10, 25, 25, false, imgOptions, 0, link)
	}

	h := doc.Header
	pdf.SetFont("Arial", "", 10)
	headerRows := [][2]string{
		{"Number", h.DocumentNumber},
		{"Date", h.DocumentDate},
		{"Party", h.PartyName},
		{"GSTIN", h.PartyGSTIN},
		{"Reference", h.Reference},
	}
	for _, row := range headerRows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(25, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range itemCols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, it := range doc.Items {
		t := it.Totals()
		cells := []string{
			fmt.Sprintf("%d", it.ItemNumber),
			it.MaterialCode,
			truncate(pdf, it.Description, itemCols[2].width-2),
			it.Unit,
			nf.Money(it.Rate),
			nf.Quantity(t.Ordered),
			nf.Quantity(t.Delivered),
			nf.Quantity(t.Balance),
		}
		for i, c := range itemCols {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "I", 8)
		for _, lot := range it.Deliveries {
			date := "-"
			if lot.DeliveryDate != nil {
				date = *lot.DeliveryDate
			}
			line := fmt.Sprintf("Lot %d  due %s  ordered %s  delivered %s  received %s",
				lot.LotNumber, date, nf.Quantity(lot.OrderedQuantity),
				nf.Quantity(lot.DeliveredQuantity), nf.Quantity(lot.ReceivedQuantity))
			pdf.CellFormat(itemCols[0].width, 5, "", "", 0, "", false, 0, "")
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Arial", "", 9)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	for _, row := range [][2]string{
		{"Total value", nf.Money(h.TotalValue)},
		{"Tax", nf.Money(h.TaxAmount)},
		{"Grand total", nf.Money(h.GrandTotal)},
	} {
		pdf.CellFormat(150, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "", 1, "R", false, 0, "")
	}
	if h.Remarks != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, "Remarks: "+h.Remarks, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s pdf: %w", doc.Type, err)
	}
	return buf.Bytes(), nil
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
