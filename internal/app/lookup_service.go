package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type LookupRepository interface {
	TokenReader
	GetProduct(ctx context.Context, idOrName string) (domain.Product, error)
	DebitCredits(ctx context.Context, token string, master bool, amount decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn domain.Transaction) error
}

// LookupOutcome is a successful reply from the credential lookup service.
type LookupOutcome struct {
	RefreshToken string
	Raw          string
}

// CredentialLookup exchanges one credential for a refresh token. A reply
// without a refresh token is an error carrying the service's message.
type CredentialLookup interface {
	Lookup(ctx context.Context, cred domain.Credential) (LookupOutcome, error)
}

const (
	defaultLookupWorkers = 10
	defaultLookupTimeout = 75 * time.Second
	defaultLookupMax     = 100
	defaultLookupProduct = "credential-lookup"
)

type LookupService struct {
	repo        LookupRepository
	lookup      CredentialLookup
	clock       clock.Clock
	logger      *zap.Logger
	workers     int
	timeout     time.Duration
	maxPairs    int
	limiter     *rate.Limiter
	productName string
}

type LookupServiceOption func(*LookupService)

func WithLookupWorkers(n int) LookupServiceOption {
	return func(s *LookupService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLookupTimeout bounds each external call.
func WithLookupTimeout(d time.Duration) LookupServiceOption {
	return func(s *LookupService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLookupMaxPairs(n int) LookupServiceOption {
	return func(s *LookupService) {
		if n > 0 {
			s.maxPairs = n
		}
	}
}

// WithLookupRate caps outbound calls per second across all workers. Zero
// leaves the pool unthrottled.
func WithLookupRate(perSecond float64) LookupServiceOption {
	return func(s *LookupService) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithLookupLogger(l *zap.Logger) LookupServiceOption {
	return func(s *LookupService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewLookupService(repo LookupRepository, lookup CredentialLookup, clk clock.Clock, opts ...LookupServiceOption) *LookupService {
	svc := &LookupService{
		repo:        repo,
		lookup:      lookup,
		clock:       clk,
		logger:      zap.NewNop(),
		workers:     defaultLookupWorkers,
		timeout:     defaultLookupTimeout,
		maxPairs:    defaultLookupMax,
		limiter:     rate.NewLimiter(rate.Inf, 0),
		productName: defaultLookupProduct,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BatchLookupInput struct {
	Token string
	// Product optionally names a bulk lookup product whose value prices
	// each pair and which the token must be bound to.
	Product        string
	UseMasterToken bool
	Lines          []string
}

type LookupEntry struct {
	Identifier    string
	Status        domain.TransactionStatus
	RefreshToken  string
	Error         string
	TransactionID string
}

type BatchLookupResult struct {
	Count   int
	Charged decimal.Decimal
	Results []LookupEntry
}

// BatchLookup charges the token for every well-formed line up front, then
// resolves the credentials on a bounded worker pool. Per-pair failures are
// recorded and returned in place; they do not fail the batch.
func (s *LookupService) BatchLookup(ctx context.Context, in BatchLookupInput) (BatchLookupResult, error) {
	if strings.TrimSpace(in.Token) == "" {
		return BatchLookupResult{}, domain.ErrTokenRequired
	}
	creds := domain.ParseCredentialLines(in.Lines)
	if len(creds) == 0 {
		return BatchLookupResult{}, domain.ErrNoCredentials
	}
	if len(creds) > s.maxPairs {
		return BatchLookupResult{}, fmt.Errorf("%w: %d lines, limit %d", domain.ErrTooManyCredentials, len(creds), s.maxPairs)
	}

	var product *domain.Product
	if name := strings.TrimSpace(in.Product); name != "" {
		p, err := s.repo.GetProduct(ctx, name)
		if err != nil {
			return BatchLookupResult{}, err
		}
		product = &p
	}

	tok, err := resolveToken(ctx, s.repo, in.Token, product, in.UseMasterToken)
	if err != nil {
		return BatchLookupResult{}, err
	}

	price := decimal.NewFromInt(int64(len(creds)))
	productID, productName := tok.ProductID, s.productName
	if product != nil {
		price = product.Price(len(creds))
		productID, productName = product.ID, product.Name
	}
	if !tok.Covers(price) {
		return BatchLookupResult{}, domain.ErrInsufficientCredits
	}
	if err := s.repo.DebitCredits(ctx, tok.Token, tok.Master, price); err != nil {
		return BatchLookupResult{}, err
	}
	s.logger.Info("batch lookup charged",
		tokenField(tok.Token),
		zap.Int("pairs", len(creds)),
		zap.String("credits", price.String()),
	)

	// Credits are already spent; a client disconnect must not abort the work.
	workCtx := context.WithoutCancel(ctx)
	results := make([]LookupEntry, len(creds))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, cred := range creds {
		g.Go(func() error {
			results[i] = s.lookupOne(workCtx, tok, productID, productName, cred)
			return nil
		})
	}
	_ = g.Wait()

	return BatchLookupResult{
		Count:   len(results),
		Charged: price,
		Results: results,
	}, nil
}

func (s *LookupService) lookupOne(ctx context.Context, tok domain.Token, productID, productName string, cred domain.Credential) LookupEntry {
	entry := LookupEntry{Identifier: cred.Identifier}

	var (
		outcome LookupOutcome
		err     error
	)
	if err = s.limiter.Wait(ctx); err == nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		outcome, err = s.lookup.Lookup(callCtx, cred)
		cancel()
	}

	txn := domain.Transaction{
		ID:          newID(),
		Token:       tok.Token,
		Master:      tok.Master,
		ProductID:   productID,
		ProductName: productName,
		Qty:         1,
		CreatedAt:   s.clock.Now(),
	}
	if err != nil {
		entry.Status = domain.TransactionFailed
		entry.Error = err.Error()
		txn.Status = domain.TransactionFailed
		txn.OutputResult = []string{cred.Identifier + ": " + err.Error()}
		txn.ResponseData = err.Error()
	} else {
		entry.Status = domain.TransactionSuccess
		entry.RefreshToken = outcome.RefreshToken
		txn.Status = domain.TransactionSuccess
		txn.OutputResult = []string{cred.Identifier + "|" + outcome.RefreshToken}
		txn.ResponseData = outcome.Raw
	}

	if insertErr := s.repo.InsertTransaction(ctx, txn); insertErr != nil {
		s.logger.Error("record lookup transaction",
			zap.String("transaction_id", txn.ID),
			zap.String("identifier", cred.Identifier),
			zap.Error(insertErr),
		)
		return entry
	}
	entry.TransactionID = txn.ID
	return entry
}
