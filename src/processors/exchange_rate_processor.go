package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ExchangeRate converts source-currency prices to the display currency at a
// fixed rate.
type ExchangeRate struct {
	From string
	To   string
	rate decimal.Decimal
}

// NewExchangeRate returns a converter for rate units of `to` per unit of `from`.
func NewExchangeRate(from, to string, rate float64) (ExchangeRate, error) {
	if rate <= 0 {
		return ExchangeRate{}, fmt.Errorf("exchange rate %s->%s must be positive, got %g", from, to, rate)
	}
	return ExchangeRate{From: from, To: to, rate: decimal.NewFromFloat(rate)}, nil
}

// Rate returns the configured rate.
func (r ExchangeRate) Rate() float64 {
	return r.rate.InexactFloat64()
}

// Convert multiplies amount by the rate in decimal arithmetic.
func (r ExchangeRate) Convert(amount float64) float64 {
	return decimal.NewFromFloat(amount).Mul(r.rate).InexactFloat64()
}

// String renders the rate the way the details panel shows it.
func (r ExchangeRate) String() string {
	return fmt.Sprintf("1 %s = %s %s", r.From, r.rate.String(), r.To)
}
