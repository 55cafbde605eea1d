package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefundRepository struct {
	db
}

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{db: db{pool: pool}}
}

func (d db) GetRefundByTransaction(ctx context.Context, transactionID string) (*domain.RefundRecord, error) {
	const query = `
SELECT id::text, transaction_id::text, refund_status, response_message, created_at
FROM refund_transactions
WHERE transaction_id = $1`

	var r domain.RefundRecord
	err := d.queryRow(ctx, query, transactionID).
		Scan(&r.ID, &r.TransactionID, &r.RefundStatus, &r.ResponseMessage, &r.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refund: %w", err)
	}
	return &r, nil
}

// CreateRefund inserts the record; the unique transaction_id makes a second
// insert for the same transaction fail with ErrRefundAlreadyRequested.
func (d db) CreateRefund(ctx context.Context, rec domain.RefundRecord) error {
	const stmt = `
INSERT INTO refund_transactions (id, transaction_id, refund_status, response_message, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := d.exec(ctx, stmt, rec.ID, rec.TransactionID, rec.RefundStatus, rec.ResponseMessage, rec.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrRefundAlreadyRequested
		case isForeignKeyViolation(err):
			return domain.ErrTransactionNotFound
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}
