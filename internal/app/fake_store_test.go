package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for every repository interface. WithTx
// snapshots state and restores it when fn fails, mimicking a rollback.
type fakeStore struct {
	mu sync.Mutex

	products     map[string]domain.Product
	tokens       map[string]domain.Token
	masterTokens map[string]domain.Token
	units        []domain.DigitalUnit
	transactions []domain.Transaction
	refunds      map[string]domain.RefundRecord
	rules        map[string]domain.RefundRule
	lockedRules  map[string]bool

	failInsert   error
	failDebit    error
	debitHook    func()
	createRefund func(rec domain.RefundRecord) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     make(map[string]domain.Product),
		tokens:       make(map[string]domain.Token),
		masterTokens: make(map[string]domain.Token),
		refunds:      make(map[string]domain.RefundRecord),
		rules:        make(map[string]domain.RefundRule),
		lockedRules:  make(map[string]bool),
	}
}

func (f *fakeStore) addProduct(p domain.Product) domain.Product {
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) addToken(t domain.Token) {
	if t.Master {
		f.masterTokens[t.Token] = t
		return
	}
	f.tokens[t.Token] = t
}

func (f *fakeStore) addUnits(productID string, contents ...string) {
	for _, c := range contents {
		f.units = append(f.units, domain.DigitalUnit{
			ID:        int64(len(f.units) + 1),
			ProductID: productID,
			Content:   c,
		})
	}
}

func (f *fakeStore) credits(token string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[token]; ok {
		return t.Credits
	}
	return f.masterTokens[token].Credits
}

func (f *fakeStore) usedUnits() int {
	n := 0
	for _, u := range f.units {
		if u.IsUsed {
			n++
		}
	}
	return n
}

type fakeSnapshot struct {
	products     map[string]domain.Product
	tokens       map[string]domain.Token
	masterTokens map[string]domain.Token
	units        []domain.DigitalUnit
	transactions []domain.Transaction
	refunds      map[string]domain.RefundRecord
	rules        map[string]domain.RefundRule
}

func (f *fakeStore) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		products:     make(map[string]domain.Product, len(f.products)),
		tokens:       make(map[string]domain.Token, len(f.tokens)),
		masterTokens: make(map[string]domain.Token, len(f.masterTokens)),
		units:        append([]domain.DigitalUnit(nil), f.units...),
		transactions: append([]domain.Transaction(nil), f.transactions...),
		refunds:      make(map[string]domain.RefundRecord, len(f.refunds)),
		rules:        make(map[string]domain.RefundRule, len(f.rules)),
	}
	for k, v := range f.products {
		s.products[k] = v
	}
	for k, v := range f.tokens {
		s.tokens[k] = v
	}
	for k, v := range f.masterTokens {
		s.masterTokens[k] = v
	}
	for k, v := range f.refunds {
		s.refunds[k] = v
	}
	for k, v := range f.rules {
		s.rules[k] = v
	}
	return s
}

func (f *fakeStore) restore(s fakeSnapshot) {
	f.products = s.products
	f.tokens = s.tokens
	f.masterTokens = s.masterTokens
	f.units = s.units
	f.transactions = s.transactions
	f.refunds = s.refunds
	f.rules = s.rules
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	snap := f.snapshot()
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.restore(snap)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, idOrName string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[idOrName]; ok {
		return p, nil
	}
	for _, p := range f.products {
		if p.Name == idOrName {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (f *fakeStore) GetProductToken(_ context.Context, token, productID string) (domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return domain.Token{}, domain.ErrInvalidToken
	}
	if t.ProductID != productID {
		return domain.Token{}, domain.ErrTokenProductInvalid
	}
	return t, nil
}

func (f *fakeStore) GetToken(_ context.Context, token string) (domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return domain.Token{}, domain.ErrInvalidToken
	}
	return t, nil
}

func (f *fakeStore) GetMasterToken(_ context.Context, token string) (domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.masterTokens[token]
	if !ok {
		return domain.Token{}, domain.ErrInvalidToken
	}
	return t, nil
}

func (f *fakeStore) ClaimUnits(_ context.Context, productID string, qty int) ([]domain.DigitalUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DigitalUnit
	for _, u := range f.units {
		if u.ProductID == productID && !u.IsUsed {
			out = append(out, u)
			if len(out) == qty {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) MarkUnitsUsed(_ context.Context, ids []int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range f.units {
		if want[f.units[i].ID] {
			f.units[i].IsUsed = true
		}
	}
	return nil
}

func (f *fakeStore) RefreshStock(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	p.Quantity = 0
	for _, u := range f.units {
		if u.ProductID == productID && !u.IsUsed {
			p.Quantity++
		}
	}
	f.products[productID] = p
	return nil
}

func (f *fakeStore) InsertTransaction(_ context.Context, txn domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return f.failInsert
	}
	f.transactions = append(f.transactions, txn)
	return nil
}

func (f *fakeStore) AppendTransactionNote(_ context.Context, id, word string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.transactions {
		if f.transactions[i].ID == id {
			f.transactions[i].Note = domain.AppendNote(f.transactions[i].Note, word)
			return nil
		}
	}
	return domain.ErrTransactionNotFound
}

func (f *fakeStore) DebitCredits(_ context.Context, token string, master bool, amount decimal.Decimal) error {
	if f.debitHook != nil {
		f.debitHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDebit != nil {
		return f.failDebit
	}
	ledger := f.tokens
	if master {
		ledger = f.masterTokens
	}
	t, ok := ledger[token]
	if !ok {
		return domain.ErrInvalidToken
	}
	if t.Credits.LessThan(amount) {
		return domain.ErrInsufficientCredits
	}
	t.Credits = t.Credits.Sub(amount)
	ledger[token] = t
	return nil
}

func (f *fakeStore) RestoreCredits(_ context.Context, token string, master bool, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ledger := f.tokens
	if master {
		ledger = f.masterTokens
	}
	t, ok := ledger[token]
	if !ok {
		return domain.ErrInvalidToken
	}
	t.Credits = t.Credits.Add(amount)
	ledger[token] = t
	return nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id string) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Transaction{}, domain.ErrTransactionNotFound
}

func (f *fakeStore) ListTransactionsByToken(_ context.Context, token string, limit int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, t := range f.transactions {
		if t.Token == token {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetRefundByTransaction(_ context.Context, transactionID string) (*domain.RefundRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.refunds[transactionID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateRefund(_ context.Context, rec domain.RefundRecord) error {
	if f.createRefund != nil {
		if err := f.createRefund(rec); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.refunds[rec.TransactionID]; ok {
		return domain.ErrRefundAlreadyRequested
	}
	f.refunds[rec.TransactionID] = rec
	return nil
}

func (f *fakeStore) ListRuleIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.rules))
	for id := range f.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) LockRule(_ context.Context, id string) (*domain.RefundRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockedRules[id] {
		return nil, nil
	}
	r, ok := f.rules[id]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return &r, nil
}

func (f *fakeStore) ListSweepCandidates(_ context.Context, productIDs []string, since time.Time) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []domain.Transaction
	for _, t := range f.transactions {
		if !want[t.ProductID] || t.Status != domain.TransactionSuccess || t.CreatedAt.Before(since) {
			continue
		}
		if strings.Contains(t.Note, domain.NoteRefunded) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) MarkRefunded(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.transactions {
		t := &f.transactions[i]
		if t.ID != id {
			continue
		}
		if t.Status != domain.TransactionSuccess || t.Refunded() {
			return false, nil
		}
		t.OutputResult = []string{domain.RefundedOutput}
		t.Note = domain.AppendNote(t.Note, domain.NoteRefunded)
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) TouchRule(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return domain.ErrRuleNotFound
	}
	r.LastCheckedAt = &at
	f.rules[id] = r
	return nil
}
