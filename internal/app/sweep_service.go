package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListRuleIDs(ctx context.Context) ([]string, error)
	// LockRule returns nil when another sweeper holds the rule.
	LockRule(ctx context.Context, id string) (*domain.RefundRule, error)
	ListSweepCandidates(ctx context.Context, productIDs []string, since time.Time) ([]domain.Transaction, error)
	// MarkRefunded rewrites the output and note unless the transaction is
	// already refunded; it reports whether a row changed.
	MarkRefunded(ctx context.Context, id string) (bool, error)
	RestoreCredits(ctx context.Context, token string, master bool, amount decimal.Decimal) error
	TouchRule(ctx context.Context, id string, at time.Time) error
}

type SweepService struct {
	repo   SweepRepository
	clock  clock.Clock
	logger *zap.Logger
}

func NewSweepService(repo SweepRepository, clk clock.Clock, logger *zap.Logger) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// SweepReport summarises one pass over all rules.
type SweepReport struct {
	Rules    int `json:"rules"`
	Skipped  int `json:"skipped"`
	Scanned  int `json:"scanned"`
	Refunded int `json:"refunded"`
	Failed   int `json:"failed"`
}

// Run processes every refund rule once. A failing rule is logged and
// counted; the remaining rules still run.
func (s *SweepService) Run(ctx context.Context) (SweepReport, error) {
	ids, err := s.repo.ListRuleIDs(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list refund rules: %w", err)
	}

	var report SweepReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Rules++
		res, err := s.runRule(ctx, id)
		if err != nil {
			report.Failed++
			s.logger.Error("sweep rule failed", zap.String("rule_id", id), zap.Error(err))
			continue
		}
		if res.skipped {
			report.Skipped++
			continue
		}
		report.Scanned += res.scanned
		report.Refunded += res.refunded
	}

	s.logger.Info("sweep finished",
		zap.Int("rules", report.Rules),
		zap.Int("skipped", report.Skipped),
		zap.Int("scanned", report.Scanned),
		zap.Int("refunded", report.Refunded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

type ruleResult struct {
	skipped  bool
	scanned  int
	refunded int
}

func (s *SweepService) runRule(ctx context.Context, id string) (ruleResult, error) {
	var res ruleResult
	now := s.clock.Now()

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		rule, err := s.repo.LockRule(txCtx, id)
		if err != nil {
			return err
		}
		if rule == nil {
			res.skipped = true
			return nil
		}
		if len(rule.ProductIDs) == 0 || len(rule.Signatures) == 0 || rule.WindowHours <= 0 {
			return s.repo.TouchRule(txCtx, rule.ID, now)
		}

		candidates, err := s.repo.ListSweepCandidates(txCtx, rule.ProductIDs, now.Add(-rule.Window()))
		if err != nil {
			return err
		}
		res.scanned = len(candidates)

		for _, txn := range candidates {
			if txn.Status != domain.TransactionSuccess || txn.Refunded() || !rule.Matches(txn.OutputResult) {
				continue
			}
			changed, err := s.repo.MarkRefunded(txCtx, txn.ID)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			res.refunded++
			if !txn.Charged() {
				s.logger.Warn("auto-refunded transaction was never charged, credits left unchanged",
					zap.String("rule_id", rule.ID),
					zap.String("transaction_id", txn.ID),
					tokenField(txn.Token),
				)
				continue
			}
			// Credits are restored by qty, not qty * product value.
			amount := decimal.NewFromInt(int64(txn.Qty))
			if err := s.repo.RestoreCredits(txCtx, txn.Token, txn.Master, amount); err != nil {
				return fmt.Errorf("credit token for transaction %s: %w", txn.ID, err)
			}
			s.logger.Info("transaction auto-refunded",
				zap.String("rule_id", rule.ID),
				zap.String("transaction_id", txn.ID),
				tokenField(txn.Token),
				zap.Int("qty", txn.Qty),
			)
		}
		return s.repo.TouchRule(txCtx, rule.ID, now)
	})
	if err != nil {
		return ruleResult{}, err
	}
	return res, nil
}

// Sweeper runs one sweep pass.
type Sweeper interface {
	Run(ctx context.Context) (SweepReport, error)
}

// SweepRunner triggers a Sweeper on a fixed interval until its context ends.
type SweepRunner struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
}

func NewSweepRunner(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SweepRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepRunner{sweeper: sweeper, interval: interval, logger: logger}
}

// Start blocks, running a pass immediately and then on every tick.
func (r *SweepRunner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("sweep pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("sweep runner stopped")
			return
		case <-ticker.C:
		}
	}
}
