package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"procurement-docs/internal/app"
	"procurement-docs/internal/core"
	"procurement-docs/internal/render"
)

const usage = "Available: list <type>, show <type> <id>, check <type> <number> [date], next <type> [date], save <type> [id] < doc.json, pdf <type> <id> <file>"

// Run executes a one-shot CLI command.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, stdin io.Reader, stdout io.Writer, nf render.NumberFormatter) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}

	switch args[0] {
	case "list", "ls":
		if len(args) < 2 {
			return fmt.Errorf("usage: app list <PO|DC|INV|SRV>")
		}
		result, err := svc.ListDocuments(ctx, args[1])
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		printRegister(stdout, result, nf)

	case "show":
		if len(args) < 3 {
			return fmt.Errorf("usage: app show <type> <id>")
		}
		id, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[2])
		}
		result, err := svc.GetDocument(ctx, args[1], id)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	case "check":
		if len(args) < 3 {
			return fmt.Errorf("usage: app check <type> <number> [date]")
		}
		req := app.DuplicateCheckRequest{Type: args[1], Number: args[2]}
		if len(args) > 3 {
			req.Date = args[3]
		}
		result, err := svc.CheckDuplicate(ctx, req)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if !result.Exists {
			fmt.Fprintf(stdout, "%s is available.\n", req.Number)
			return nil
		}
		fmt.Fprintf(stdout, "%s is used by document %d (%s).\n", req.Number, result.DocumentID, result.ConflictType)

	case "next":
		if len(args) < 2 {
			return fmt.Errorf("usage: app next <type> [date]")
		}
		date := ""
		if len(args) > 2 {
			date = args[2]
		}
		result, err := svc.NextDocumentNumber(ctx, args[1], date)
		if err != nil {
			return fmt.Errorf("next number: %w", err)
		}
		fmt.Fprintln(stdout, result.DocumentNumber)

	case "save":
		if len(args) < 2 {
			return fmt.Errorf("usage: app save <type> [id] < document.json")
		}
		var doc core.Document
		if err := json.NewDecoder(stdin).Decode(&doc); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		req := app.SaveDocumentRequest{Type: args[1], Document: doc}
		if len(args) > 2 {
			id, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[2])
			}
			req.ID = id
		}
		result, err := svc.SaveDocument(ctx, req)
		if err != nil {
			return fmt.Errorf("save document: %w", err)
		}
		fmt.Fprintf(stdout, "Saved %s %s (id %d, version %d).\n",
			result.Document.Type, result.Document.Header.DocumentNumber, result.Document.ID, result.Document.Version)

	case "pdf":
		if len(args) < 4 {
			return fmt.Errorf("usage: app pdf <type> <id> <file>")
		}
		id, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[2])
		}
		result, err := svc.RenderDocumentPDF(ctx, args[1], id)
		if err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		if err := os.WriteFile(args[3], result.Data, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Fprintf(stdout, "Wrote %s (%d bytes).\n", args[3], len(result.Data))

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func printRegister(out io.Writer, result *app.DocumentListResult, nf render.NumberFormatter) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %s REGISTER\n", strings.ToUpper(result.Type.Title()))
	fmt.Fprintln(out, strings.Repeat("=", 72))
	if len(result.Documents) == 0 {
		fmt.Fprintln(out, "  No documents found.")
		fmt.Fprintln(out, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(out, "  %-5s %-20s %-10s %-20s %12s\n", "ID", "NUMBER", "DATE", "PARTY", "GRAND TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for _, d := range result.Documents {
		fmt.Fprintf(out, "  %-5d %-20s %-10s %-20s %12s\n",
			d.ID, d.DocumentNumber, d.DocumentDate, d.PartyName, nf.Money(d.GrandTotal))
	}
	fmt.Fprintln(out, strings.Repeat("=", 72))
}
