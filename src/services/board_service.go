package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/models"
	"github.com/username/priceboard/backend/src/processors"
	"github.com/username/priceboard/backend/src/utils"
	"golang.org/x/sync/singleflight"
)

// NoDataMessage is shown to users when a load cycle yields nothing.
const NoDataMessage = "Unable to load data. Please check your connection and try again."

const (
	DefaultViewCacheTTL = 5 * time.Minute
	viewCacheCleanup    = 10 * time.Minute
	ckSubset            = "subset|%d|%q|%q|%q|%q"
	loadFlightKey       = "load"
)

// BoardOptions wires a BoardService.
type BoardOptions struct {
	Prices      PriceService
	Normalizer  processors.QuoteNormalizer
	Views       processors.ViewComputer
	Categories  processors.CategoryLookup
	Rate        processors.ExchangeRate
	Watchlist   *WatchlistService
	Identifiers []string
	ViewTTL     time.Duration
	Now         func() time.Time
}

// BoardService owns the canonical dataset of the current load cycle and
// derives everything the front end displays from it.
type BoardService struct {
	prices      PriceService
	normalizer  processors.QuoteNormalizer
	views       processors.ViewComputer
	categories  processors.CategoryLookup
	rate        processors.ExchangeRate
	watchlist   *WatchlistService
	identifiers []string
	now         func() time.Time

	subsetCache *cache.Cache
	loads       singleflight.Group

	mu         sync.RWMutex
	dataset    []models.CanonicalItem
	loading    bool
	errMsg     string
	generation uint64
}

func NewBoardService(opts BoardOptions) *BoardService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Views == nil {
		opts.Views = processors.NewViewProcessor()
	}
	if opts.ViewTTL <= 0 {
		opts.ViewTTL = DefaultViewCacheTTL
	}
	return &BoardService{
		prices:      opts.Prices,
		normalizer:  opts.Normalizer,
		views:       opts.Views,
		categories:  opts.Categories,
		rate:        opts.Rate,
		watchlist:   opts.Watchlist,
		identifiers: slices.Clone(opts.Identifiers),
		now:         opts.Now,
		subsetCache: cache.New(opts.ViewTTL, viewCacheCleanup),
	}
}

// LoadData runs a full load cycle: fetch every identifier, normalize, and
// publish the result as the new dataset. When nothing usable comes back the
// dataset is emptied, the user-facing error is set and ErrNoDataAvailable is
// returned. Concurrent calls share one cycle.
func (s *BoardService) LoadData(ctx context.Context) error {
	_, err, _ := s.loads.Do(loadFlightKey, func() (interface{}, error) {
		return nil, s.load(ctx)
	})
	return err
}

func (s *BoardService) load(ctx context.Context) error {
	startTime := time.Now()
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	var items []models.CanonicalItem
	quotes, err := s.prices.FetchQuotes(ctx, s.identifiers)
	if err == nil {
		items = s.normalizer.Normalize(quotes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.generation++
	s.subsetCache.Flush()

	if len(items) == 0 {
		s.dataset = nil
		s.errMsg = NoDataMessage
		logger.L.Error("Load cycle produced no items", "identifiers", len(s.identifiers), "fetchError", err)
		return fmt.Errorf("load cycle %d: %w", s.generation, ErrNoDataAvailable)
	}

	s.dataset = items
	logger.L.Info("Load cycle complete", "generation", s.generation, "items", len(items), "duration", time.Since(startTime))
	return nil
}

// Dataset returns a copy of the current canonical dataset.
func (s *BoardService) Dataset() []models.CanonicalItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dataset)
}

// Status reports the loading flag and the current user-facing error.
func (s *BoardService) Status() (loading bool, errMsg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading, s.errMsg
}

// View computes the board for state.
func (s *BoardService) View(state models.FilterState) models.BoardView {
	s.mu.RLock()
	dataset := s.dataset
	generation := s.generation
	loading, errMsg := s.loading, s.errMsg
	s.mu.RUnlock()

	subset := s.subset(generation, dataset, state)
	return models.BoardView{
		Items:   s.rows(subset),
		Stats:   s.views.Stats(dataset, subset),
		Options: s.views.Options(dataset),
		Loading: loading,
		Error:   errMsg,
	}
}

// subset memoizes Compute per load generation; the dataset of a generation
// never changes.
func (s *BoardService) subset(generation uint64, dataset []models.CanonicalItem, state models.FilterState) []models.CanonicalItem {
	key := fmt.Sprintf(ckSubset, generation, state.SearchText, state.SelectedProductName, state.SelectedLocation, state.SortKey)
	if cached, found := s.subsetCache.Get(key); found {
		return cached.([]models.CanonicalItem)
	}
	subset := s.views.Compute(dataset, state)
	s.subsetCache.SetDefault(key, subset)
	return subset
}

func (s *BoardService) rows(subset []models.CanonicalItem) []models.Row {
	now := s.now()
	trends := s.views.Trends(subset)
	rows := make([]models.Row, len(subset))
	for i, item := range subset {
		rows[i] = models.Row{
			CanonicalItem:  item,
			Category:       s.categories.Category(item.ProductName),
			Trend:          trends[i],
			InWatchlist:    s.watchlist.Contains(item.ProductName),
			FormattedPrice: utils.FormatPrice(item.PriceLocal, item.Currency),
			FormattedDate:  utils.FormatDisplayDate(item.Date),
			TimeAgo:        utils.TimeAgo(item.Date, now),
		}
	}
	return rows
}

// Details returns the details panel for productName.
func (s *BoardService) Details(productName string) (models.ItemDetails, error) {
	item, ok := s.find(productName)
	if !ok {
		return models.ItemDetails{}, fmt.Errorf("%w: %s", ErrItemNotFound, productName)
	}
	return models.ItemDetails{
		CanonicalItem:     item,
		Category:          s.categories.Category(item.ProductName),
		FormattedPrice:    utils.FormatPrice(item.PriceLocal, item.Currency),
		FormattedOriginal: utils.FormatPrice(item.PriceOriginal, s.rate.From),
		FormattedDate:     utils.FormatDisplayDate(item.Date),
		TimeAgo:           utils.TimeAgo(item.Date, s.now()),
		ExchangeRate:      s.rate.String(),
		InWatchlist:       s.watchlist.Contains(item.ProductName),
	}, nil
}

// ToggleWatchlist adds or removes productName. Items that dropped out of the
// current dataset can still be removed through their stored snapshot.
func (s *BoardService) ToggleWatchlist(ctx context.Context, productName string) ([]models.WatchlistEntry, bool, error) {
	item, ok := s.find(productName)
	if !ok {
		entry, stored := s.watchlist.Get(productName)
		if !stored {
			return nil, false, fmt.Errorf("%w: %s", ErrItemNotFound, productName)
		}
		item = entry.CanonicalItem
	}
	return s.watchlist.Toggle(ctx, item)
}

// Watchlist returns the current watchlist entries.
func (s *BoardService) Watchlist() []models.WatchlistEntry {
	return s.watchlist.Entries()
}

func (s *BoardService) find(productName string) (models.CanonicalItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := slices.IndexFunc(s.dataset, func(item models.CanonicalItem) bool {
		return item.ProductName == productName
	})
	if idx == -1 {
		return models.CanonicalItem{}, false
	}
	return s.dataset[idx], true
}
