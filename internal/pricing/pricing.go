package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Subby02/web-project/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type Quote struct {
	IsDiscounted bool  `json:"isDiscounted"`
	UnitPrice    int64 `json:"unitPrice"`
}

// Resolve prices one unit of product at the given instant. The discount applies
// only when the rate is positive, both window bounds are set, and at falls
// inside [SaleStart, SaleEnd] inclusive. Results are rounded half-up to the
// nearest minor unit.
func Resolve(product domain.Product, at time.Time) Quote {
	if !OnSale(product, at) {
		return Quote{UnitPrice: product.BasePrice}
	}

	factor := hundred.Sub(decimal.NewFromFloat(product.DiscountRate)).Div(hundred)
	unit := decimal.NewFromInt(product.BasePrice).Mul(factor).Round(0)

	return Quote{IsDiscounted: true, UnitPrice: unit.IntPart()}
}

func OnSale(product domain.Product, at time.Time) bool {
	if product.DiscountRate <= 0 || product.SaleStart == nil || product.SaleEnd == nil {
		return false
	}
	return !at.Before(*product.SaleStart) && !at.After(*product.SaleEnd)
}
