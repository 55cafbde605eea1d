package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SweepRepository struct {
	db
}

func NewSweepRepository(pool *pgxpool.Pool) *SweepRepository {
	return &SweepRepository{db: db{pool: pool}}
}

func (r *SweepRepository) ListRuleIDs(ctx context.Context) ([]string, error) {
	rows, err := r.query(ctx, `SELECT id::text FROM refund_rules ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list refund rules: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list refund rules: %w", err)
	}
	return ids, nil
}

// LockRule takes the rule row lock for the current transaction. It returns
// nil, nil when another sweeper already holds it.
func (r *SweepRepository) LockRule(ctx context.Context, id string) (*domain.RefundRule, error) {
	const query = `
SELECT id::text, name, product_ids::text[], signatures, window_hours, last_checked_at
FROM refund_rules
WHERE id = $1
FOR UPDATE SKIP LOCKED`

	var (
		rule       domain.RefundRule
		signatures string
	)
	err := r.queryRow(ctx, query, id).
		Scan(&rule.ID, &rule.Name, &rule.ProductIDs, &signatures, &rule.WindowHours, &rule.LastCheckedAt)
	if err == nil {
		rule.Signatures = domain.ParseSignatures(signatures)
		return &rule, nil
	}
	if isInvalidUUID(err) {
		return nil, domain.ErrInvalidID
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lock refund rule: %w", err)
	}

	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM refund_rules WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lock refund rule: %w", err)
	}
	if !exists {
		return nil, domain.ErrRuleNotFound
	}
	return nil, nil
}

// ListSweepCandidates returns unreversed successful transactions for the
// given products created at or after since.
func (r *SweepRepository) ListSweepCandidates(ctx context.Context, productIDs []string, since time.Time) ([]domain.Transaction, error) {
	rows, err := r.query(ctx, selectTransaction+`
WHERE product_id = ANY($1::text[]::uuid[])
	AND status = 'success'
	AND created_at >= $2
	AND note NOT LIKE '%Refunded%'
ORDER BY created_at, id`, productIDs, since)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SweepRepository) MarkRefunded(ctx context.Context, id string) (bool, error) {
	const stmt = `
UPDATE transactions
SET output_result = $2,
	note = CASE WHEN note = '' THEN $3 ELSE note || ' ' || $3 END
WHERE id = $1 AND status = 'success' AND note NOT LIKE '%Refunded%'`

	tag, err := r.exec(ctx, stmt, id, []string{domain.RefundedOutput}, domain.NoteRefunded)
	if err != nil {
		return false, fmt.Errorf("mark refunded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SweepRepository) TouchRule(ctx context.Context, id string, at time.Time) error {
	tag, err := r.exec(ctx, `UPDATE refund_rules SET last_checked_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch refund rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}
