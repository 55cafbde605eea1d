package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"go.uber.org/zap"
)

type RefundRepository interface {
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)
	GetRefundByTransaction(ctx context.Context, transactionID string) (*domain.RefundRecord, error)
	CreateRefund(ctx context.Context, rec domain.RefundRecord) error
}

// RefundDecision is what the external approval workflow answered.
type RefundDecision struct {
	RefundStatus    string
	ResponseMessage string
}

// RefundApprover submits a transaction to the approval workflow. A non-200
// reply is reported as a failed decision, not an error.
type RefundApprover interface {
	SubmitRefund(ctx context.Context, txn domain.Transaction) (RefundDecision, error)
}

const serverErrorMessage = "Server Error"

type RefundService struct {
	repo     RefundRepository
	approver RefundApprover
	clock    clock.Clock
	window   time.Duration
	logger   *zap.Logger
}

const defaultRefundWindow = time.Hour

type RefundServiceOption func(*RefundService)

// WithRefundWindow overrides how long after settlement a refund may be requested.
func WithRefundWindow(d time.Duration) RefundServiceOption {
	return func(s *RefundService) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithRefundLogger(l *zap.Logger) RefundServiceOption {
	return func(s *RefundService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewRefundService(repo RefundRepository, approver RefundApprover, clk clock.Clock, opts ...RefundServiceOption) *RefundService {
	svc := &RefundService{
		repo:     repo,
		approver: approver,
		clock:    clk,
		window:   defaultRefundWindow,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type RefundResult struct {
	Record  domain.RefundRecord
	Created bool
}

// RequestRefund records the approval workflow's verdict for a transaction.
// It never touches token credits. When a record already exists the error is
// domain.ErrRefundAlreadyRequested and the result carries that record.
func (s *RefundService) RequestRefund(ctx context.Context, transactionID string) (RefundResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return RefundResult{}, domain.ErrTransactionRequired
	}

	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return RefundResult{}, err
	}

	existing, err := s.repo.GetRefundByTransaction(ctx, txn.ID)
	if err != nil {
		return RefundResult{}, err
	}
	if existing != nil {
		return RefundResult{Record: *existing}, domain.ErrRefundAlreadyRequested
	}

	now := s.clock.Now()
	if now.Sub(txn.CreatedAt) > s.window {
		return RefundResult{}, domain.ErrRefundWindowExpired
	}

	decision, err := s.approver.SubmitRefund(ctx, txn)
	if err != nil {
		s.logger.Warn("refund approval call failed",
			zap.String("transaction_id", txn.ID),
			zap.Error(err),
		)
		decision = RefundDecision{RefundStatus: domain.RefundStatusFailed, ResponseMessage: serverErrorMessage}
	}

	rec := domain.RefundRecord{
		ID:              newID(),
		TransactionID:   txn.ID,
		RefundStatus:    decision.RefundStatus,
		ResponseMessage: decision.ResponseMessage,
		CreatedAt:       now,
	}
	if err := s.repo.CreateRefund(ctx, rec); err != nil {
		// A concurrent request won the unique insert; report its record.
		if errors.Is(err, domain.ErrRefundAlreadyRequested) {
			winner, getErr := s.repo.GetRefundByTransaction(ctx, txn.ID)
			if getErr != nil {
				return RefundResult{}, getErr
			}
			if winner != nil {
				return RefundResult{Record: *winner}, domain.ErrRefundAlreadyRequested
			}
		}
		return RefundResult{}, err
	}

	s.logger.Info("refund requested",
		zap.String("transaction_id", txn.ID),
		zap.String("refund_id", rec.ID),
		zap.String("refund_status", rec.RefundStatus),
	)
	return RefundResult{Record: rec, Created: true}, nil
}
