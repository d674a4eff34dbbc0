package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// maxNumberSkips bounds how many manually entered numbers NextNumber steps over.
const maxNumberSkips = 1000

// DocumentNumberer issues the next number in a per-type, per-financial-year series.
// Repositories that support numbering implement it next to DocumentRepository.
// An issued number is reserved even if the document is never saved.
type DocumentNumberer interface {
	NextNumber(ctx context.Context, docType DocumentType, date string) (string, error)
}

// FormatDocumentNumber renders a series number as TYPE/YY-YY/NNNN, e.g. PO/26-27/0001
// for the first purchase order of financial year 2026-27.
func FormatDocumentNumber(docType DocumentType, financialYear int, seq int64) string {
	return fmt.Sprintf("%s/%02d-%02d/%04d", docType, financialYear%100, (financialYear+1)%100, seq)
}

// numberingYear resolves the financial year for date, defaulting to today.
func numberingYear(date string) int {
	if fy := FinancialYear(date); fy != 0 {
		return fy
	}
	return FinancialYear(time.Now().Format("2006-01-02"))
}

// NextNumber draws from document_sequences with a concurrency-safe upsert. Numbers
// already entered by hand are skipped.
func (r *documentRepository) NextNumber(ctx context.Context, docType DocumentType, date string) (string, error) {
	docType, err := ParseDocumentType(string(docType))
	if err != nil {
		return "", err
	}
	fy := numberingYear(date)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for attempt := 0; attempt < maxNumberSkips; attempt++ {
		var last int64
		err := tx.QueryRow(ctx, `
			INSERT INTO document_sequences (doc_type, financial_year, last_number)
			VALUES ($1, $2, 1)
			ON CONFLICT (doc_type, financial_year)
			DO UPDATE SET last_number = document_sequences.last_number + 1
			RETURNING last_number`,
			string(docType), fy,
		).Scan(&last)
		if err != nil {
			return "", fmt.Errorf("failed to generate sequence number: %w", err)
		}

		number := FormatDocumentNumber(docType, fy, last)
		taken, err := numberTaken(ctx, tx, docType, number)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}
		if err := tx.Commit(ctx); err != nil {
			return "", fmt.Errorf("failed to commit transaction: %w", err)
		}
		return number, nil
	}
	return "", fmt.Errorf("no free %s number in financial year %d after %d attempts", docType, fy, maxNumberSkips)
}

func numberTaken(ctx context.Context, tx pgx.Tx, docType DocumentType, number string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM procurement_documents WHERE doc_type = $1 AND document_number = $2
		)`,
		string(docType), number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check number %q: %w", number, err)
	}
	return exists, nil
}

// NextNumber issues numbers from an in-process counter with the same format and
// skip rules as the PostgreSQL series.
func (r *MemoryRepository) NextNumber(_ context.Context, docType DocumentType, date string) (string, error) {
	docType, err := ParseDocumentType(string(docType))
	if err != nil {
		return "", err
	}
	fy := numberingYear(date)

	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s/%d", docType, fy)
	for attempt := 0; attempt < maxNumberSkips; attempt++ {
		r.sequences[key]++
		number := FormatDocumentNumber(docType, fy, r.sequences[key])
		if !r.numberTakenLocked(docType, number) {
			return number, nil
		}
	}
	return "", fmt.Errorf("no free %s number in financial year %d after %d attempts", docType, fy, maxNumberSkips)
}

func (r *MemoryRepository) numberTakenLocked(docType DocumentType, number string) bool {
	for _, d := range r.docs {
		if d.Type == docType && d.Header.DocumentNumber == number {
			return true
		}
	}
	return false
}
