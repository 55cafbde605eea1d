package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActivationStatus string

const (
	ActivationNone      ActivationStatus = "none"
	ActivationPending   ActivationStatus = "pending"
	ActivationActivated ActivationStatus = "activated"
	ActivationRejected  ActivationStatus = "rejected"
)

// Token is a spendable credit balance. Regular tokens are bound to one
// product; master tokens (Master=true, ProductID empty) are tracked in a
// separate ledger and may be spent on any product.
type Token struct {
	Token            string
	ProductID        string
	Credits          decimal.Decimal
	Activated        bool
	Locked           bool
	ActivationStatus ActivationStatus
	Master           bool
	CreatedAt        time.Time
}

// CheckUsable returns the authorization error that forbids charging the
// token, or nil. Activation only applies to regular tokens.
func (t Token) CheckUsable() error {
	if t.Locked {
		return ErrTokenLocked
	}
	if t.Master {
		return nil
	}
	switch {
	case t.ActivationStatus == ActivationRejected:
		return ErrActivationRejected
	case t.ActivationStatus != ActivationActivated || !t.Activated:
		return ErrActivationPending
	}
	return nil
}

// Covers reports whether the balance can pay amount.
func (t Token) Covers(amount decimal.Decimal) bool {
	return t.Credits.GreaterThanOrEqual(amount)
}
