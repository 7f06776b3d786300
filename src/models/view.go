package models

import "time"

// SortKey selects the ordering of the display subset.
type SortKey string

const (
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortName      SortKey = "name"
	SortDate      SortKey = "date" // default; unknown keys behave like this one
)

// FilterState is the user's current filter and sort selection.
type FilterState struct {
	SearchText          string  `json:"searchText"`
	SelectedProductName string  `json:"selectedProductName"`
	SelectedLocation    string  `json:"selectedLocation"`
	SortKey             SortKey `json:"sortKey"`
}

// Stats summarises a display subset against its dataset.
type Stats struct {
	TotalProducts  int      `json:"totalProducts"`
	TotalLocations int      `json:"totalLocations"`
	LastUpdated    string   `json:"lastUpdated"` // most recent item date, empty without data
	DataSources    []string `json:"dataSources"`
}

// Trend is the adjacent-row price comparison shown next to each row. It only
// reflects the current sort order; no price history is involved.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// FilterOptions lists the distinct values offered by the product and location filters.
type FilterOptions struct {
	Products  []string `json:"products"`
	Locations []string `json:"locations"`
}

// Row is one display row.
type Row struct {
	CanonicalItem
	Category       string `json:"category"`
	Trend          Trend  `json:"trend"`
	InWatchlist    bool   `json:"inWatchlist"`
	FormattedPrice string `json:"formattedPrice"`
	FormattedDate  string `json:"formattedDate"`
	TimeAgo        string `json:"timeAgo"`
}

// BoardView is everything the front end needs to draw the board.
type BoardView struct {
	Items   []Row         `json:"items"`
	Stats   Stats         `json:"stats"`
	Options FilterOptions `json:"options"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

// ItemDetails backs the item details panel.
type ItemDetails struct {
	CanonicalItem
	Category          string `json:"category"`
	FormattedPrice    string `json:"formattedPrice"`
	FormattedOriginal string `json:"formattedOriginal"`
	FormattedDate     string `json:"formattedDate"`
	TimeAgo           string `json:"timeAgo"`
	ExchangeRate      string `json:"exchangeRate"` // e.g. "1 USD = 15.5 GHS"
	InWatchlist       bool   `json:"inWatchlist"`
}

// Notification is a user-visible message emitted by watchlist changes.
type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"` // "success" or "info"
	Message     string    `json:"message"`
	ProductName string    `json:"productName"`
	Action      string    `json:"action"` // "added" or "removed"
	CreatedAt   time.Time `json:"createdAt"`
}
