package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductDigital ProductType = "digital"
	ProductAPI     ProductType = "api"
)

// MaxQuantity bounds a single settlement.
const MaxQuantity = 1000

// Product is a redeemable item. API products carry the upstream call
// template; digital products are fulfilled from DigitalUnit rows.
type Product struct {
	ID           string
	Name         string
	Type         ProductType
	APIURL       string
	APIMethod    string
	APIPayload   string
	ResponsePath string
	OutputRegex  string
	Value        decimal.Decimal
	Quantity     int
	CreatedAt    time.Time
}

var one = decimal.NewFromInt(1)

// UnitPrice is the credit cost of one unit; unpriced products cost 1.
func (p Product) UnitPrice() decimal.Decimal {
	if p.Value.Sign() <= 0 {
		return one
	}
	return p.Value
}

// Price returns qty * UnitPrice.
func (p Product) Price(qty int) decimal.Decimal {
	return p.UnitPrice().Mul(decimal.NewFromInt(int64(qty)))
}

// DigitalUnit is one pre-provisioned deliverable. Once used it is never
// delivered again.
type DigitalUnit struct {
	ID        int64
	ProductID string
	Content   string
	IsUsed    bool
	CreatedAt time.Time
}
