package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const selectToken = `
SELECT token, product_id::text, credits, activated, locked, activation_status, created_at
FROM tokens
WHERE token = $1`

func (d db) GetToken(ctx context.Context, token string) (domain.Token, error) {
	var t domain.Token
	err := d.queryRow(ctx, selectToken, token).
		Scan(&t.Token, &t.ProductID, &t.Credits, &t.Activated, &t.Locked, &t.ActivationStatus, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, domain.ErrInvalidToken
		}
		return domain.Token{}, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// GetProductToken loads a regular token and checks it is bound to productID.
func (d db) GetProductToken(ctx context.Context, token, productID string) (domain.Token, error) {
	t, err := d.GetToken(ctx, token)
	if err != nil {
		return domain.Token{}, err
	}
	if t.ProductID != productID {
		return domain.Token{}, domain.ErrTokenProductInvalid
	}
	return t, nil
}

func (d db) GetMasterToken(ctx context.Context, token string) (domain.Token, error) {
	const query = `SELECT token, credits, locked, created_at FROM tokens_master WHERE token = $1`
	t := domain.Token{Master: true}
	err := d.queryRow(ctx, query, token).Scan(&t.Token, &t.Credits, &t.Locked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, domain.ErrInvalidToken
		}
		return domain.Token{}, fmt.Errorf("get master token: %w", err)
	}
	return t, nil
}

func ledgerTable(master bool) string {
	if master {
		return "tokens_master"
	}
	return "tokens"
}

// DebitCredits subtracts amount only if the balance still covers it. A
// balance that moved underneath the caller yields ErrInsufficientCredits.
func (d db) DebitCredits(ctx context.Context, token string, master bool, amount decimal.Decimal) error {
	table := ledgerTable(master)
	tag, err := d.exec(ctx,
		`UPDATE `+table+` SET credits = credits - $2 WHERE token = $1 AND credits >= $2`,
		token, amount)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientCredits
		}
		return fmt.Errorf("debit credits: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := d.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE token = $1)`, token).Scan(&exists); err != nil {
		return fmt.Errorf("debit credits: %w", err)
	}
	if !exists {
		return domain.ErrInvalidToken
	}
	return domain.ErrInsufficientCredits
}

func (d db) RestoreCredits(ctx context.Context, token string, master bool, amount decimal.Decimal) error {
	tag, err := d.exec(ctx,
		`UPDATE `+ledgerTable(master)+` SET credits = credits + $2 WHERE token = $1`,
		token, amount)
	if err != nil {
		return fmt.Errorf("restore credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidToken
	}
	return nil
}
