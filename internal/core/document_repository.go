package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs a DocumentRepository backed by PostgreSQL.
func NewDocumentRepository(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepository{pool: pool}
}

// GetDocument loads the header, items and delivery lots of one document.
func (r *documentRepository) GetDocument(ctx context.Context, docType DocumentType, id int) (*Document, error) {
	doc := &Document{}
	var number *string
	if err := r.pool.QueryRow(ctx, `
		SELECT id, doc_type, version, document_number, COALESCE(document_date::text, ''),
		       party_name, party_gstin, reference, remarks,
		       total_value, tax_amount, grand_total
		FROM procurement_documents
		WHERE id = $1 AND doc_type = $2`,
		id, string(docType),
	).Scan(
		&doc.ID, &doc.Type, &doc.Version, &number, &doc.Header.DocumentDate,
		&doc.Header.PartyName, &doc.Header.PartyGSTIN, &doc.Header.Reference, &doc.Header.Remarks,
		&doc.Header.TotalValue, &doc.Header.TaxAmount, &doc.Header.GrandTotal,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", docType, id, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("get %s %d: %w", docType, id, err)
	}
	if number != nil {
		doc.Header.DocumentNumber = *number
	}

	items, err := r.fetchItems(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return doc, nil
}

func (r *documentRepository) fetchItems(ctx context.Context, documentID int) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_number, material_code, description, drawing_number, unit, rate
		FROM document_items
		WHERE document_id = $1
		ORDER BY position`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query items for document %d: %w", documentID, err)
	}
	defer rows.Close()

	items := []LineItem{}
	indexByID := make(map[int]int)
	for rows.Next() {
		var itemID int
		it := LineItem{Deliveries: []DeliveryLot{}}
		if err := rows.Scan(&itemID, &it.ItemNumber, &it.MaterialCode, &it.Description,
			&it.DrawingNumber, &it.Unit, &it.Rate); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		indexByID[itemID] = len(items)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	lotRows, err := r.pool.Query(ctx, `
		SELECT d.item_id, d.lot_number, d.ordered_quantity, d.delivered_quantity,
		       d.received_quantity, d.delivery_date::text
		FROM item_deliveries d
		JOIN document_items i ON i.id = d.item_id
		WHERE i.document_id = $1
		ORDER BY i.position, d.position`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query deliveries for document %d: %w", documentID, err)
	}
	defer lotRows.Close()

	for lotRows.Next() {
		var itemID int
		var lot DeliveryLot
		if err := lotRows.Scan(&itemID, &lot.LotNumber, &lot.OrderedQuantity, &lot.DeliveredQuantity,
			&lot.ReceivedQuantity, &lot.DeliveryDate); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		idx, ok := indexByID[itemID]
		if !ok {
			continue
		}
		items[idx].Deliveries = append(items[idx].Deliveries, lot)
	}
	if err := lotRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return items, nil
}

// ListDocuments returns summaries for a register, newest first.
func (r *documentRepository) ListDocuments(ctx context.Context, docType DocumentType) ([]DocumentSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.doc_type, COALESCE(d.document_number, ''), COALESCE(d.document_date::text, ''),
		       d.party_name, d.grand_total, d.version,
		       (SELECT COUNT(*) FROM document_items i WHERE i.document_id = d.id)
		FROM procurement_documents d
		WHERE d.doc_type = $1
		ORDER BY d.document_date DESC NULLS LAST, d.id DESC`,
		string(docType),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", docType, err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var s DocumentSummary
		if err := rows.Scan(&s.ID, &s.Type, &s.DocumentNumber, &s.DocumentDate,
			&s.PartyName, &s.GrandTotal, &s.Version, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("scan document summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveDocument writes the whole tree in one transaction. Items and lots are replaced
// wholesale; the header update is guarded by the version the caller loaded.
// An assigned document number is never overwritten.
func (r *documentRepository) SaveDocument(ctx context.Context, doc Document) (*Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	h := doc.Header
	id := doc.ID
	if id == 0 {
		if err := tx.QueryRow(ctx, `
			INSERT INTO procurement_documents
			            (doc_type, document_number, document_date, party_name, party_gstin,
			             reference, remarks, total_value, tax_amount, grand_total)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, '')::date, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			string(doc.Type), h.DocumentNumber, h.DocumentDate, h.PartyName, h.PartyGSTIN,
			h.Reference, h.Remarks, h.TotalValue, h.TaxAmount, h.GrandTotal,
		).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert %s: %w", doc.Type, mapConstraintError(err, h.DocumentNumber))
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE procurement_documents
			SET document_number = CASE WHEN COALESCE(document_number, '') = '' THEN NULLIF($3, '')
			                           ELSE document_number END,
			    document_date = NULLIF($4, '')::date,
			    party_name = $5, party_gstin = $6, reference = $7, remarks = $8,
			    total_value = $9, tax_amount = $10, grand_total = $11,
			    version = version + 1, updated_at = NOW()
			WHERE id = $1 AND doc_type = $2 AND version = $12`,
			id, string(doc.Type), h.DocumentNumber, h.DocumentDate,
			h.PartyName, h.PartyGSTIN, h.Reference, h.Remarks,
			h.TotalValue, h.TaxAmount, h.GrandTotal, doc.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("update %s %d: %w", doc.Type, id, mapConstraintError(err, h.DocumentNumber))
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				"SELECT EXISTS(SELECT 1 FROM procurement_documents WHERE id = $1 AND doc_type = $2)",
				id, string(doc.Type),
			).Scan(&exists); err != nil {
				return nil, fmt.Errorf("check %s %d: %w", doc.Type, id, err)
			}
			if !exists {
				return nil, fmt.Errorf("%s %d: %w", doc.Type, id, ErrDocumentNotFound)
			}
			return nil, fmt.Errorf("%s %d version %d: %w", doc.Type, id, doc.Version, ErrVersionConflict)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM document_items WHERE document_id = $1", id); err != nil {
			return nil, fmt.Errorf("clear items of %s %d: %w", doc.Type, id, err)
		}
	}

	for i, it := range doc.Items {
		var itemID int
		if err := tx.QueryRow(ctx, `
			INSERT INTO document_items
			            (document_id, position, item_number, material_code, description,
			             drawing_number, unit, rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			id, i+1, it.ItemNumber, it.MaterialCode, it.Description,
			it.DrawingNumber, it.Unit, it.Rate,
		).Scan(&itemID); err != nil {
			return nil, fmt.Errorf("insert item %d: %w", it.ItemNumber, err)
		}
		for j, lot := range it.Deliveries {
			if _, err := tx.Exec(ctx, `
				INSERT INTO item_deliveries
				            (item_id, position, lot_number, ordered_quantity, delivered_quantity,
				             received_quantity, delivery_date)
				VALUES ($1, $2, $3, $4, $5, $6, $7::date)`,
				itemID, j+1, lot.LotNumber, lot.OrderedQuantity, lot.DeliveredQuantity,
				lot.ReceivedQuantity, lot.DeliveryDate,
			); err != nil {
				return nil, fmt.Errorf("insert item %d lot %d: %w", it.ItemNumber, lot.LotNumber, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s: %w", doc.Type, err)
	}
	return r.GetDocument(ctx, doc.Type, id)
}

// CheckDuplicate looks for another document of the same type using number.
func (r *documentRepository) CheckDuplicate(ctx context.Context, docType DocumentType, number, date string, excludeID int) (*DuplicateCheckResult, error) {
	if number == "" {
		return &DuplicateCheckResult{}, nil
	}
	var id int
	var existingDate string
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(document_date::text, '')
		FROM procurement_documents
		WHERE doc_type = $1 AND document_number = $2 AND id <> $3
		ORDER BY id
		LIMIT 1`,
		string(docType), number, excludeID,
	).Scan(&id, &existingDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return &DuplicateCheckResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check duplicate %s %q: %w", docType, number, err)
	}
	return &DuplicateCheckResult{
		Exists:       true,
		ConflictType: ClassifyConflict(existingDate, date),
		DocumentID:   id,
	}, nil
}

func mapConstraintError(err error, number string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: document number %q already exists", ErrInvalidDocument, number)
	}
	return err
}
