package processors

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/username/priceboard/backend/src/models"
)

const (
	unknownCommodity = "Unknown Commodity"
	unknownExchange  = "Unknown Exchange"
	defaultCategory  = "Commodity"
	dateLayout       = "2006-01-02"
)

var trailingFutures = regexp.MustCompile(`(?i)\s+futures$`)

// QuoteProcessor turns raw quotes into canonical items. It performs no I/O;
// the clock is only consulted for quotes without a source timestamp.
type QuoteProcessor struct {
	rate      ExchangeRate
	source    string
	locations map[string]string
	now       func() time.Time
}

func NewQuoteProcessor(rate ExchangeRate, source string, locations map[string]string, now func() time.Time) *QuoteProcessor {
	if now == nil {
		now = time.Now
	}
	return &QuoteProcessor{
		rate:      rate,
		source:    source,
		locations: locations,
		now:       now,
	}
}

// Normalize maps quotes to canonical items in input order. Nil quotes (failed
// fetches) and invalid records are skipped.
func (p *QuoteProcessor) Normalize(quotes []*models.RawQuote) []models.CanonicalItem {
	items := make([]models.CanonicalItem, 0, len(quotes))
	for _, q := range quotes {
		if q == nil {
			continue
		}
		if item, ok := p.NormalizeQuote(*q); ok {
			items = append(items, item)
		}
	}
	return items
}

// NormalizeQuote returns ok=false when the quote has no usable name or its
// converted price is not positive.
func (p *QuoteProcessor) NormalizeQuote(q models.RawQuote) (models.CanonicalItem, bool) {
	name := ProductName(q.Name)
	if name == "" || strings.EqualFold(name, unknownCommodity) {
		return models.CanonicalItem{}, false
	}

	original, ok := q.Price.Float64()
	local := 0.0
	if ok {
		local = p.rate.Convert(original)
	}
	if local <= 0 {
		return models.CanonicalItem{}, false
	}

	updated, ok := q.UpdatedAt()
	if !ok {
		updated = p.now()
	}

	return models.CanonicalItem{
		ProductName:   name,
		PriceLocal:    local,
		Currency:      p.rate.To,
		Location:      p.Location(q.Exchange),
		Date:          updated.UTC().Format(dateLayout),
		Source:        p.source,
		PriceOriginal: original,
	}, true
}

// Location resolves an exchange code to its city, falling back to the code.
func (p *QuoteProcessor) Location(exchange string) string {
	if exchange == "" {
		return unknownExchange
	}
	if loc, ok := p.locations[exchange]; ok {
		return loc
	}
	return exchange
}

// ProductName converts a source identifier such as "soybean_oil" or
// "CORN FUTURES" into a display title ("Soybean Oil", "Corn").
func ProductName(raw string) string {
	name := strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	name = titleCase(name)
	return strings.TrimSpace(trailingFutures.ReplaceAllString(name, ""))
}

// titleCase lower-cases s and upper-cases every letter that starts a word.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range strings.ToLower(s) {
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(r)
		}
		startOfWord = !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	return b.String()
}

// CategoryLookup maps product names to their commodity group.
type CategoryLookup map[string]string

// Category returns the group for a product name, or "Commodity".
func (c CategoryLookup) Category(productName string) string {
	if cat, ok := c[productName]; ok {
		return cat
	}
	return defaultCategory
}
