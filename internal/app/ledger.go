package app

import (
	"context"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"go.uber.org/zap"
)

// TokenReader reads both token ledgers.
type TokenReader interface {
	GetProductToken(ctx context.Context, token, productID string) (domain.Token, error)
	GetToken(ctx context.Context, token string) (domain.Token, error)
	GetMasterToken(ctx context.Context, token string) (domain.Token, error)
}

// resolveToken loads the token a settlement will charge. Master tokens come
// from the master ledger; regular tokens must be bound to product.
func resolveToken(ctx context.Context, r TokenReader, token string, product *domain.Product, master bool) (domain.Token, error) {
	var (
		tok domain.Token
		err error
	)
	switch {
	case master:
		tok, err = r.GetMasterToken(ctx, token)
	case product != nil:
		tok, err = r.GetProductToken(ctx, token, product.ID)
	default:
		tok, err = r.GetToken(ctx, token)
	}
	if err != nil {
		return domain.Token{}, err
	}
	if err := tok.CheckUsable(); err != nil {
		return domain.Token{}, err
	}
	return tok, nil
}

// maskToken keeps the last four characters for log lines.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func tokenField(token string) zap.Field {
	return zap.String("token", maskToken(token))
}
