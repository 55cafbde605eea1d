package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SettlementRepository interface {
	TokenReader
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetProduct(ctx context.Context, idOrName string) (domain.Product, error)
	ClaimUnits(ctx context.Context, productID string, qty int) ([]domain.DigitalUnit, error)
	MarkUnitsUsed(ctx context.Context, ids []int64, at time.Time) error
	RefreshStock(ctx context.Context, productID string) error
	InsertTransaction(ctx context.Context, txn domain.Transaction) error
	AppendTransactionNote(ctx context.Context, id, word string) error
	DebitCredits(ctx context.Context, token string, master bool, amount decimal.Decimal) error
}

// ProductCall is one rendered upstream request for an API product.
type ProductCall struct {
	Method string
	URL    string
	Body   string
}

// ProductResponse is the raw upstream reply. Non-2xx replies are returned
// without an error; err is reserved for transport failures.
type ProductResponse struct {
	StatusCode int
	Body       []byte
}

type ProductCaller interface {
	CallProduct(ctx context.Context, call ProductCall) (ProductResponse, error)
}

type SettlementService struct {
	repo   SettlementRepository
	caller ProductCaller
	clock  clock.Clock
	logger *zap.Logger
}

type SettlementServiceOption func(*SettlementService)

func WithSettlementLogger(l *zap.Logger) SettlementServiceOption {
	return func(s *SettlementService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSettlementService(repo SettlementRepository, caller ProductCaller, clk clock.Clock, opts ...SettlementServiceOption) *SettlementService {
	svc := &SettlementService{
		repo:   repo,
		caller: caller,
		clock:  clk,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SettleInput struct {
	// Product is a product id or its unique name.
	Product        string
	Token          string
	Quantity       int
	UseMasterToken bool
}

// SettleResult describes a recorded settlement attempt. Failure is set when
// the attempt was recorded as failed (stock shortage, upstream error).
type SettleResult struct {
	Success       bool
	Message       string
	TransactionID string
	Delivered     []string
	Transaction   domain.Transaction
	Failure       error
}

// Settle redeems a token against a product. Validation failures return an
// error and record nothing. Delivery failures are recorded as a failed
// transaction and reported through SettleResult.Failure. An error wrapping
// domain.ErrPostDeliveryLedger comes with a populated result: the goods are
// gone but the credit deduction did not apply.
func (s *SettlementService) Settle(ctx context.Context, in SettleInput) (SettleResult, error) {
	if in.Quantity <= 0 || in.Quantity > domain.MaxQuantity {
		return SettleResult{}, domain.ErrInvalidQuantity
	}
	if strings.TrimSpace(in.Product) == "" {
		return SettleResult{}, domain.ErrProductRequired
	}
	if strings.TrimSpace(in.Token) == "" {
		return SettleResult{}, domain.ErrTokenRequired
	}

	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(in.Product))
	if err != nil {
		return SettleResult{}, err
	}
	tok, err := resolveToken(ctx, s.repo, in.Token, &product, in.UseMasterToken)
	if err != nil {
		return SettleResult{}, err
	}

	required := product.Price(in.Quantity)
	if !tok.Covers(required) {
		return SettleResult{}, domain.ErrInsufficientCredits
	}

	txn := domain.Transaction{
		ID:          newID(),
		Token:       tok.Token,
		Master:      tok.Master,
		ProductID:   product.ID,
		ProductName: product.Name,
		Qty:         in.Quantity,
		CreatedAt:   s.clock.Now(),
	}

	switch product.Type {
	case domain.ProductDigital:
		return s.settleDigital(ctx, product, tok, txn, required)
	case domain.ProductAPI:
		return s.settleAPI(ctx, product, tok, txn, required)
	default:
		return SettleResult{}, fmt.Errorf("%w: unknown type %q", domain.ErrProductMisconfigured, product.Type)
	}
}

func (s *SettlementService) settleDigital(ctx context.Context, product domain.Product, tok domain.Token, txn domain.Transaction, required decimal.Decimal) (SettleResult, error) {
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		units, err := s.repo.ClaimUnits(txCtx, product.ID, txn.Qty)
		if err != nil {
			return err
		}
		if len(units) < txn.Qty {
			msg := fmt.Sprintf("insufficient stock: requested %d, available %d", txn.Qty, len(units))
			txn.Status = domain.TransactionFailed
			txn.OutputResult = []string{msg}
			txn.ResponseData = msg
			return s.repo.InsertTransaction(txCtx, txn)
		}

		ids := make([]int64, 0, len(units))
		contents := make([]string, 0, len(units))
		for _, u := range units {
			ids = append(ids, u.ID)
			contents = append(contents, u.Content)
		}
		if err := s.repo.MarkUnitsUsed(txCtx, ids, txn.CreatedAt); err != nil {
			return err
		}

		txn.Status = domain.TransactionSuccess
		txn.OutputResult = contents
		txn.ResponseData = strings.Join(contents, "\n")
		if err := s.repo.InsertTransaction(txCtx, txn); err != nil {
			return err
		}
		// A lost race on the balance rolls back the claim and the row.
		if err := s.repo.DebitCredits(txCtx, tok.Token, tok.Master, required); err != nil {
			return err
		}
		return s.repo.RefreshStock(txCtx, product.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return SettleResult{}, err
		}
		return SettleResult{}, fmt.Errorf("settle digital: %w", err)
	}

	if txn.Status == domain.TransactionFailed {
		s.logger.Info("settlement failed",
			zap.String("transaction_id", txn.ID),
			zap.String("product_id", product.ID),
			tokenField(tok.Token),
			zap.String("reason", "insufficient_stock"),
		)
		return failedResult(txn, domain.ErrInsufficientStock), nil
	}

	s.logger.Info("settlement succeeded",
		zap.String("transaction_id", txn.ID),
		zap.String("product_id", product.ID),
		tokenField(tok.Token),
		zap.Int("qty", txn.Qty),
		zap.String("credits", required.String()),
	)
	return successResult(txn), nil
}

func (s *SettlementService) settleAPI(ctx context.Context, product domain.Product, tok domain.Token, txn domain.Transaction, required decimal.Decimal) (SettleResult, error) {
	if strings.TrimSpace(product.APIURL) == "" {
		return SettleResult{}, fmt.Errorf("%w: api product %s has no url", domain.ErrProductMisconfigured, product.ID)
	}
	call := ProductCall{
		Method: productMethod(product),
		URL:    applyQuantity(product.APIURL, txn.Qty),
		Body:   applyQuantity(product.APIPayload, txn.Qty),
	}

	resp, callErr := s.caller.CallProduct(ctx, call)
	if callErr != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The caller only sees a generic message; the detail stays in
		// response_data and the log.
		msg := fmt.Sprintf("upstream returned status %d", resp.StatusCode)
		detail := string(resp.Body)
		if callErr != nil {
			msg = upstreamFailedMessage
			detail = strings.TrimSpace(callErr.Error() + "\n" + detail)
		}
		txn.Status = domain.TransactionFailed
		txn.OutputResult = []string{msg}
		txn.ResponseData = detail
		if err := s.repo.InsertTransaction(ctx, txn); err != nil {
			return SettleResult{}, fmt.Errorf("record failed settlement: %w", err)
		}
		s.logger.Warn("settlement upstream failure",
			zap.String("transaction_id", txn.ID),
			zap.String("product_id", product.ID),
			zap.Int("upstream_status", resp.StatusCode),
			zap.NamedError("upstream_error", callErr),
		)
		return failedResult(txn, domain.ErrUpstream), nil
	}

	txn.Status = domain.TransactionSuccess
	txn.OutputResult = extractOutput(resp.Body, product.ResponsePath, product.OutputRegex)
	txn.ResponseData = string(resp.Body)

	var ledgerErr error
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.InsertTransaction(txCtx, txn); err != nil {
			return err
		}
		err := s.repo.DebitCredits(txCtx, tok.Token, tok.Master, required)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrInsufficientCredits) && !errors.Is(err, domain.ErrInvalidToken) {
			return err
		}
		ledgerErr = err
		txn.Note = domain.AppendNote(txn.Note, domain.NoteLedgerDeductionFailed)
		return s.repo.AppendTransactionNote(txCtx, txn.ID, domain.NoteLedgerDeductionFailed)
	})
	if err != nil {
		s.logger.Error("delivered api settlement could not be recorded",
			zap.String("transaction_id", txn.ID),
			zap.String("product_id", product.ID),
			tokenField(tok.Token),
			zap.Strings("output", txn.OutputResult),
			zap.Error(err),
		)
		return SettleResult{}, fmt.Errorf("%w: %v", domain.ErrPostDeliveryLedger, err)
	}
	if ledgerErr != nil {
		s.logger.Error("credit deduction failed after delivery",
			zap.String("transaction_id", txn.ID),
			zap.String("product_id", product.ID),
			tokenField(tok.Token),
			zap.String("credits", required.String()),
			zap.Error(ledgerErr),
		)
		return successResult(txn), fmt.Errorf("%w: %v", domain.ErrPostDeliveryLedger, ledgerErr)
	}

	s.logger.Info("settlement succeeded",
		zap.String("transaction_id", txn.ID),
		zap.String("product_id", product.ID),
		tokenField(tok.Token),
		zap.Int("qty", txn.Qty),
		zap.String("credits", required.String()),
	)
	return successResult(txn), nil
}

const upstreamFailedMessage = "upstream request failed"

func productMethod(p domain.Product) string {
	if m := strings.ToUpper(strings.TrimSpace(p.APIMethod)); m != "" {
		return m
	}
	if strings.TrimSpace(p.APIPayload) != "" {
		return http.MethodPost
	}
	return http.MethodGet
}

func successResult(txn domain.Transaction) SettleResult {
	return SettleResult{
		Success:       true,
		Message:       "settlement completed",
		TransactionID: txn.ID,
		Delivered:     txn.OutputResult,
		Transaction:   txn,
	}
}

func failedResult(txn domain.Transaction, reason error) SettleResult {
	msg := reason.Error()
	if len(txn.OutputResult) > 0 {
		msg = txn.OutputResult[0]
	}
	return SettleResult{
		Success:       false,
		Message:       msg,
		TransactionID: txn.ID,
		Delivered:     txn.OutputResult,
		Transaction:   txn,
		Failure:       reason,
	}
}
