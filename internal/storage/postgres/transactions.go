package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
)

const selectTransaction = `
SELECT id::text, token, master, COALESCE(product_id::text, ''), product_name, qty, status,
	output_result, response_data, note, created_at
FROM transactions`

// pgText makes upstream text storable: Postgres rejects NUL in text and
// jsonb, and any invalid UTF-8.
func pgText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ToValidUTF8(s, "\uFFFD")
}

func (d db) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	const stmt = `
INSERT INTO transactions (id, token, master, product_id, product_name, qty, status, output_result, response_data, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	output := make([]string, 0, len(txn.OutputResult))
	for _, item := range txn.OutputResult {
		output = append(output, pgText(item))
	}
	_, err := d.exec(ctx, stmt,
		txn.ID,
		pgText(txn.Token),
		txn.Master,
		nullableUUID(txn.ProductID),
		pgText(txn.ProductName),
		txn.Qty,
		txn.Status,
		output,
		pgText(txn.ResponseData),
		pgText(txn.Note),
		txn.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (d db) AppendTransactionNote(ctx context.Context, id, word string) error {
	const stmt = `
UPDATE transactions
SET note = CASE WHEN note = '' THEN $2 ELSE note || ' ' || $2 END
WHERE id = $1`
	tag, err := d.exec(ctx, stmt, id, word)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("append transaction note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (d db) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	txn, err := scanTransaction(d.queryRow(ctx, selectTransaction+` WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Transaction{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

func (d db) ListTransactionsByToken(ctx context.Context, token string, limit int) ([]domain.Transaction, error) {
	rows, err := d.query(ctx, selectTransaction+` WHERE token = $1 ORDER BY created_at DESC, id LIMIT $2`, token, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Token, &t.Master, &t.ProductID, &t.ProductName, &t.Qty, &t.Status,
		&t.OutputResult, &t.ResponseData, &t.Note, &t.CreatedAt)
	return t, err
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return out, nil
}
