package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// SettlementRepository backs app.SettlementService.
type SettlementRepository struct {
	db
}

func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{db: db{pool: pool}}
}

// LookupRepository backs app.LookupService.
type LookupRepository struct {
	db
}

func NewLookupRepository(pool *pgxpool.Pool) *LookupRepository {
	return &LookupRepository{db: db{pool: pool}}
}

// TokenRepository backs app.TokenService.
type TokenRepository struct {
	db
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db{pool: pool}}
}
