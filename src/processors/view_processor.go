package processors

import (
	"cmp"
	"slices"
	"strings"

	"github.com/username/priceboard/backend/src/models"
)

// ViewProcessor derives display subsets from a canonical dataset. All methods
// are pure: inputs are never modified and every call returns fresh slices.
type ViewProcessor struct{}

func NewViewProcessor() *ViewProcessor {
	return &ViewProcessor{}
}

// Compute filters dataset by state and sorts the result by state.SortKey.
// The sort is stable, so ties keep their dataset order.
func (v *ViewProcessor) Compute(dataset []models.CanonicalItem, state models.FilterState) []models.CanonicalItem {
	search := strings.ToLower(strings.TrimSpace(state.SearchText))

	subset := make([]models.CanonicalItem, 0, len(dataset))
	for _, item := range dataset {
		if search != "" &&
			!strings.Contains(strings.ToLower(item.ProductName), search) &&
			!strings.Contains(strings.ToLower(item.Location), search) {
			continue
		}
		if state.SelectedProductName != "" && item.ProductName != state.SelectedProductName {
			continue
		}
		if state.SelectedLocation != "" && item.Location != state.SelectedLocation {
			continue
		}
		subset = append(subset, item)
	}

	slices.SortStableFunc(subset, comparator(state.SortKey))
	return subset
}

func comparator(key models.SortKey) func(a, b models.CanonicalItem) int {
	switch key {
	case models.SortPriceLow:
		return func(a, b models.CanonicalItem) int { return cmp.Compare(a.PriceLocal, b.PriceLocal) }
	case models.SortPriceHigh:
		return func(a, b models.CanonicalItem) int { return cmp.Compare(b.PriceLocal, a.PriceLocal) }
	case models.SortName:
		return func(a, b models.CanonicalItem) int { return strings.Compare(a.ProductName, b.ProductName) }
	default:
		// Canonical dates are YYYY-MM-DD, so string order is date order.
		return func(a, b models.CanonicalItem) int { return strings.Compare(b.Date, a.Date) }
	}
}

// Stats counts distinct products and locations in subset; the freshness date and
// source labels always describe the whole dataset.
func (v *ViewProcessor) Stats(dataset, subset []models.CanonicalItem) models.Stats {
	products := make(map[string]struct{})
	locations := make(map[string]struct{})
	for _, item := range subset {
		products[item.ProductName] = struct{}{}
		locations[item.Location] = struct{}{}
	}

	stats := models.Stats{
		TotalProducts:  len(products),
		TotalLocations: len(locations),
		DataSources:    []string{},
	}
	seen := make(map[string]struct{})
	for _, item := range dataset {
		if item.Date > stats.LastUpdated {
			stats.LastUpdated = item.Date
		}
		if _, ok := seen[item.Source]; !ok {
			seen[item.Source] = struct{}{}
			stats.DataSources = append(stats.DataSources, item.Source)
		}
	}
	return stats
}

// Options returns the sorted distinct product names and locations of dataset.
func (v *ViewProcessor) Options(dataset []models.CanonicalItem) models.FilterOptions {
	products := make([]string, 0, len(dataset))
	locations := make([]string, 0, len(dataset))
	for _, item := range dataset {
		products = append(products, item.ProductName)
		locations = append(locations, item.Location)
	}
	slices.Sort(products)
	slices.Sort(locations)
	return models.FilterOptions{
		Products:  slices.Compact(products),
		Locations: slices.Compact(locations),
	}
}

// Trends compares each row's price with the row above it. The first row is
// always stable.
func (v *ViewProcessor) Trends(subset []models.CanonicalItem) []models.Trend {
	trends := make([]models.Trend, len(subset))
	for i, item := range subset {
		switch {
		case i == 0:
			trends[i] = models.TrendStable
		case item.PriceLocal > subset[i-1].PriceLocal:
			trends[i] = models.TrendUp
		case item.PriceLocal < subset[i-1].PriceLocal:
			trends[i] = models.TrendDown
		default:
			trends[i] = models.TrendStable
		}
	}
	return trends
}
