package app

import (
	"context"
	"errors"
	"strings"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
)

type TokenRepository interface {
	GetToken(ctx context.Context, token string) (domain.Token, error)
	GetMasterToken(ctx context.Context, token string) (domain.Token, error)
	ListTransactionsByToken(ctx context.Context, token string, limit int) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)
	GetRefundByTransaction(ctx context.Context, transactionID string) (*domain.RefundRecord, error)
}

type TokenService struct {
	repo TokenRepository
}

func NewTokenService(repo TokenRepository) *TokenService {
	return &TokenService{repo: repo}
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Balance looks the token up in the regular ledger, then the master ledger.
func (s *TokenService) Balance(ctx context.Context, token string) (domain.Token, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Token{}, domain.ErrTokenRequired
	}
	tok, err := s.repo.GetToken(ctx, token)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, domain.ErrInvalidToken) {
		return domain.Token{}, err
	}
	return s.repo.GetMasterToken(ctx, token)
}

// History returns the token's transactions, newest first.
func (s *TokenService) History(ctx context.Context, token string, limit int) ([]domain.Transaction, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrTokenRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListTransactionsByToken(ctx, token, limit)
}

type TransactionDetail struct {
	Transaction domain.Transaction
	Refund      *domain.RefundRecord
}

func (s *TokenService) Transaction(ctx context.Context, id string) (TransactionDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return TransactionDetail{}, domain.ErrTransactionRequired
	}
	txn, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return TransactionDetail{}, err
	}
	refund, err := s.repo.GetRefundByTransaction(ctx, id)
	if err != nil {
		return TransactionDetail{}, err
	}
	return TransactionDetail{Transaction: txn, Refund: refund}, nil
}
