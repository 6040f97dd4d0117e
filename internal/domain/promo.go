package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPromoCode is returned when a code is not in the promo table.
var ErrInvalidPromoCode = errors.New("invalid promo code")

// PromoCode is a recognised code and the percentage it takes off the subtotal.
type PromoCode struct {
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
}

// promoTable is keyed by upper-cased code.
var promoTable = map[string]decimal.Decimal{
	"DISCOUNT20": decimal.NewFromInt(20),
}

// LookupPromoCode finds a code, ignoring case and surrounding whitespace.
func LookupPromoCode(code string) (PromoCode, bool) {
	key := strings.ToUpper(strings.TrimSpace(code))
	pct, ok := promoTable[key]
	if !ok {
		return PromoCode{}, false
	}
	return PromoCode{Code: key, Percentage: pct}, true
}

// DiscountOn returns the discount this code grants on subtotal.
func (p PromoCode) DiscountOn(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.Percentage).Div(decimal.NewFromInt(100))
}
