package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	mu       sync.Mutex
	failFor  map[string]error
	inFlight int32
	peak     int32
	delay    time.Duration
}

func (s *stubLookup) Lookup(ctx context.Context, cred domain.Credential) (LookupOutcome, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return LookupOutcome{}, ctx.Err()
		}
	}

	s.mu.Lock()
	err := s.failFor[cred.Identifier]
	s.mu.Unlock()
	if err != nil {
		return LookupOutcome{}, err
	}
	return LookupOutcome{RefreshToken: "rt-" + cred.Identifier, Raw: `{"refresh_token":"rt-` + cred.Identifier + `"}`}, nil
}

func newLookupFixture(opts ...LookupServiceOption) (*fakeStore, *stubLookup, *LookupService) {
	store := newFakeStore()
	lookup := &stubLookup{failFor: map[string]error{}}
	svc := NewLookupService(store, lookup, clock.NewFixed(settleNow), opts...)
	return store, lookup, svc
}

func TestLookupService_BatchLookup(t *testing.T) {
	t.Parallel()

	t.Run("drops malformed lines and charges per valid pair", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addToken(activeToken("tok-1", "", 10))

		res, err := svc.BatchLookup(context.Background(), BatchLookupInput{
			Token: "tok-1",
			Lines: []string{"a@x.io|pw1", "b@x.io:pw2", "garbage", "c@x.io|pw3"},
		})
		require.NoError(t, err)

		assert.Equal(t, 3, res.Count)
		assert.True(t, decimal.NewFromInt(3).Equal(res.Charged))
		assert.True(t, decimal.NewFromInt(7).Equal(store.credits("tok-1")))
		require.Len(t, store.transactions, 3)
		for _, txn := range store.transactions {
			assert.Equal(t, defaultLookupProduct, txn.ProductName)
			assert.Equal(t, 1, txn.Qty)
		}
	})

	t.Run("keeps input order and reports failures in place", func(t *testing.T) {
		store, lookup, svc := newLookupFixture(WithLookupWorkers(4))
		store.addToken(activeToken("tok-1", "", 100))
		lookup.failFor["id-3"] = errors.New("invalid_grant")

		lines := make([]string, 0, 12)
		for i := 0; i < 12; i++ {
			lines = append(lines, fmt.Sprintf("id-%d|secret", i))
		}

		res, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Lines: lines})
		require.NoError(t, err)
		require.Len(t, res.Results, 12)
		for i, entry := range res.Results {
			assert.Equal(t, fmt.Sprintf("id-%d", i), entry.Identifier)
			assert.NotEmpty(t, entry.TransactionID)
		}
		assert.Equal(t, domain.TransactionFailed, res.Results[3].Status)
		assert.Equal(t, "invalid_grant", res.Results[3].Error)
		assert.Equal(t, domain.TransactionSuccess, res.Results[4].Status)
		assert.Equal(t, "rt-id-4", res.Results[4].RefreshToken)
		assert.True(t, decimal.NewFromInt(88).Equal(store.credits("tok-1")), "failed pairs stay charged")
	})

	t.Run("worker pool is bounded", func(t *testing.T) {
		store, lookup, svc := newLookupFixture(WithLookupWorkers(2))
		store.addToken(activeToken("tok-1", "", 100))
		lookup.delay = 20 * time.Millisecond

		lines := []string{"a|1", "b|2", "c|3", "d|4", "e|5", "f|6"}
		_, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Lines: lines})
		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&lookup.peak), int32(2))
	})

	t.Run("per call timeout fails the pair", func(t *testing.T) {
		store, lookup, svc := newLookupFixture(WithLookupTimeout(5 * time.Millisecond))
		store.addToken(activeToken("tok-1", "", 5))
		lookup.delay = time.Second

		res, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Lines: []string{"a|1"}})
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
		assert.Equal(t, domain.TransactionFailed, res.Results[0].Status)
	})

	t.Run("cancelled request still finishes the batch", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addToken(activeToken("tok-1", "", 5))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := svc.BatchLookup(ctx, BatchLookupInput{Token: "tok-1", Lines: []string{"a|1", "b|2"}})
		require.NoError(t, err)
		for _, entry := range res.Results {
			assert.Equal(t, domain.TransactionSuccess, entry.Status)
		}
	})

	t.Run("product prices the batch", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addProduct(domain.Product{ID: "p-bulk", Name: "Bulk Lookup", Type: domain.ProductAPI, Value: decimal.RequireFromString("0.5")})
		store.addToken(activeToken("tok-1", "p-bulk", 2))

		res, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Product: "Bulk Lookup", Lines: []string{"a|1", "b|2", "c|3"}})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1.5").Equal(res.Charged))
		assert.True(t, decimal.RequireFromString("0.5").Equal(store.credits("tok-1")))
		require.Len(t, store.transactions, 3)
		assert.Equal(t, "p-bulk", store.transactions[0].ProductID)
	})

	t.Run("insufficient credits charges nothing", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addToken(activeToken("tok-1", "", 2))

		_, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Lines: []string{"a|1", "b|2", "c|3"}})
		require.ErrorIs(t, err, domain.ErrInsufficientCredits)
		assert.True(t, decimal.NewFromInt(2).Equal(store.credits("tok-1")))
		assert.Empty(t, store.transactions)
	})

	t.Run("too many lines", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addToken(activeToken("tok-1", "", 1000))
		lines := make([]string, 101)
		for i := range lines {
			lines[i] = fmt.Sprintf("id-%d|pw", i)
		}

		_, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Lines: lines})
		require.ErrorIs(t, err, domain.ErrTooManyCredentials)
		assert.Empty(t, store.transactions)
	})

	t.Run("no valid lines", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addToken(activeToken("tok-1", "", 5))

		_, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "tok-1", Lines: []string{"", "nothing here"}})
		require.ErrorIs(t, err, domain.ErrNoCredentials)
	})

	t.Run("master token", func(t *testing.T) {
		store, _, svc := newLookupFixture()
		store.addToken(domain.Token{Token: "m-1", Master: true, Credits: decimal.NewFromInt(5)})

		_, err := svc.BatchLookup(context.Background(), BatchLookupInput{Token: "m-1", UseMasterToken: true, Lines: []string{"a|1"}})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(4).Equal(store.credits("m-1")))
		require.Len(t, store.transactions, 1)
		assert.True(t, store.transactions[0].Master)
	})
}
