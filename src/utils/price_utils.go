package utils

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"GHS": "GH₵ ",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatPrice renders a price with two decimals and its currency symbol, e.g.
// "GH₵ 69.75" or "$4.50". Codes without a known symbol are prefixed by the code.
// Non-finite prices render as "N/A".
func FormatPrice(price float64, currency string) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "N/A"
	}
	code := strings.ToUpper(currency)
	if code == "" {
		code = "USD"
	}
	amount := decimal.NewFromFloat(price).StringFixed(2)
	if symbol, ok := currencySymbols[code]; ok {
		return symbol + amount
	}
	return code + " " + amount
}
