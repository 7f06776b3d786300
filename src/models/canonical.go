package models

import "time"

// CanonicalItem is the normalized, display-ready price record. The JSON names
// match the watchlist format already stored by the browser front end.
type CanonicalItem struct {
	ProductName   string  `json:"productName"`
	PriceLocal    float64 `json:"price"` // converted to Currency
	Currency      string  `json:"currency"`
	Location      string  `json:"location"`
	Date          string  `json:"date"` // YYYY-MM-DD, UTC
	Source        string  `json:"source"`
	PriceOriginal float64 `json:"usdPrice"` // unconverted source price
}

// WatchlistEntry is a snapshot of an item at the moment it was added.
type WatchlistEntry struct {
	CanonicalItem
	AddedAt time.Time `json:"addedAt"`
}
