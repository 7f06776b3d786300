package processors

import (
	"github.com/username/priceboard/backend/src/models"
)

// QuoteNormalizer defines the interface for turning fetched quotes into canonical items.
type QuoteNormalizer interface {
	Normalize(quotes []*models.RawQuote) []models.CanonicalItem
}

// ViewComputer defines the interface for deriving display data from a dataset.
type ViewComputer interface {
	Compute(dataset []models.CanonicalItem, state models.FilterState) []models.CanonicalItem
	Stats(dataset, subset []models.CanonicalItem) models.Stats
	Options(dataset []models.CanonicalItem) models.FilterOptions
	Trends(subset []models.CanonicalItem) []models.Trend
}

var (
	_ QuoteNormalizer = (*QuoteProcessor)(nil)
	_ ViewComputer    = (*ViewProcessor)(nil)
)
