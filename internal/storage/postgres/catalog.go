package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectProduct = `
SELECT id::text, name, type, api_url, api_method, api_payload, response_path, output_regex, value, quantity, created_at
FROM products`

// GetProduct resolves a product by id, falling back to its unique name.
func (d db) GetProduct(ctx context.Context, idOrName string) (domain.Product, error) {
	if _, err := uuid.Parse(idOrName); err == nil {
		p, err := d.scanProduct(d.queryRow(ctx, selectProduct+` WHERE id = $1`, idOrName))
		if !errors.Is(err, domain.ErrProductNotFound) {
			return p, err
		}
	}
	return d.scanProduct(d.queryRow(ctx, selectProduct+` WHERE name = $1`, idOrName))
}

func (d db) scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.APIURL, &p.APIMethod, &p.APIPayload,
		&p.ResponsePath, &p.OutputRegex, &p.Value, &p.Quantity, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ClaimUnits locks up to qty unused units, oldest first. Units locked by a
// concurrent claim are skipped rather than waited on.
func (d db) ClaimUnits(ctx context.Context, productID string, qty int) ([]domain.DigitalUnit, error) {
	const query = `
SELECT id, product_id::text, content, is_used, created_at
FROM digital_products
WHERE product_id = $1 AND NOT is_used
ORDER BY id
LIMIT $2
FOR UPDATE SKIP LOCKED`

	rows, err := d.query(ctx, query, productID, qty)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("claim units: %w", err)
	}
	defer rows.Close()

	var units []domain.DigitalUnit
	for rows.Next() {
		var u domain.DigitalUnit
		if err := rows.Scan(&u.ID, &u.ProductID, &u.Content, &u.IsUsed, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim units: %w", err)
	}
	return units, nil
}

func (d db) MarkUnitsUsed(ctx context.Context, ids []int64, at time.Time) error {
	tag, err := d.exec(ctx,
		`UPDATE digital_products SET is_used = TRUE, used_at = $2 WHERE id = ANY($1) AND NOT is_used`,
		ids, at)
	if err != nil {
		return fmt.Errorf("mark units used: %w", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return fmt.Errorf("mark units used: %d of %d rows changed", tag.RowsAffected(), len(ids))
	}
	return nil
}

// RefreshStock recomputes the cached quantity from unused units.
func (d db) RefreshStock(ctx context.Context, productID string) error {
	const stmt = `
UPDATE products
SET quantity = (SELECT COUNT(*) FROM digital_products WHERE product_id = $1 AND NOT is_used)
WHERE id = $1`
	if _, err := d.exec(ctx, stmt, productID); err != nil {
		return fmt.Errorf("refresh stock: %w", err)
	}
	return nil
}
