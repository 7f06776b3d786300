package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/models"
)

// WatchlistService keeps the user's watchlist and persists the whole set under
// a single storage key after every change.
type WatchlistService struct {
	mu       sync.Mutex
	store    KVStore
	key      string
	notifier Notifier
	now      func() time.Time
	entries  []models.WatchlistEntry
}

func NewWatchlistService(store KVStore, key string, notifier Notifier, now func() time.Time) *WatchlistService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = NotifierFunc(func(models.Notification) {})
	}
	return &WatchlistService{
		store:    store,
		key:      key,
		notifier: notifier,
		now:      now,
	}
}

// Load reads the stored watchlist. Missing, unreadable or corrupt data yields
// an empty watchlist; the error is logged, never returned.
func (s *WatchlistService) Load(ctx context.Context) []models.WatchlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	raw, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		logger.L.Error("Error reading watchlist from storage, starting empty", "key", s.key, "error", err)
		return s.copyEntries()
	}
	if !ok {
		return s.copyEntries()
	}

	var stored []models.WatchlistEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logger.L.Warn("Stored watchlist is corrupt, resetting to empty", "key", s.key, "error", err)
		return s.copyEntries()
	}

	seen := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		if _, dup := seen[e.ProductName]; dup || e.ProductName == "" {
			continue
		}
		seen[e.ProductName] = struct{}{}
		s.entries = append(s.entries, e)
	}
	logger.L.Info("Watchlist loaded", "key", s.key, "entries", len(s.entries))
	return s.copyEntries()
}

// Toggle removes the entry for item.ProductName if present, otherwise adds a
// snapshot of item. The full set is persisted before returning. If the write
// fails the previous set is kept and the error returned.
func (s *WatchlistService) Toggle(ctx context.Context, item models.CanonicalItem) ([]models.WatchlistEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.entries
	idx := s.indexOf(item.ProductName)
	added := idx == -1
	if added {
		s.entries = append(slices.Clip(s.entries), models.WatchlistEntry{CanonicalItem: item, AddedAt: s.now().UTC()})
	} else {
		s.entries = slices.Delete(slices.Clone(s.entries), idx, idx+1)
	}

	if err := s.persist(ctx); err != nil {
		s.entries = previous
		return s.copyEntries(), false, err
	}

	s.notifier.Publish(toggleNotification(item.ProductName, added, s.now().UTC()))
	return s.copyEntries(), added, nil
}

// Contains reports whether productName is on the watchlist.
func (s *WatchlistService) Contains(productName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(productName) != -1
}

// Get returns the stored entry for productName.
func (s *WatchlistService) Get(productName string) (models.WatchlistEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(productName); idx != -1 {
		return s.entries[idx], true
	}
	return models.WatchlistEntry{}, false
}

// Entries returns a copy of the watchlist in insertion order.
func (s *WatchlistService) Entries() []models.WatchlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyEntries()
}

func (s *WatchlistService) indexOf(productName string) int {
	return slices.IndexFunc(s.entries, func(e models.WatchlistEntry) bool {
		return e.ProductName == productName
	})
}

func (s *WatchlistService) copyEntries() []models.WatchlistEntry {
	out := make([]models.WatchlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *WatchlistService) persist(ctx context.Context) error {
	payload := s.entries
	if payload == nil {
		payload = []models.WatchlistEntry{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding watchlist: %w", err)
	}
	if err := s.store.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("error saving watchlist: %w", err)
	}
	return nil
}

func toggleNotification(productName string, added bool, at time.Time) models.Notification {
	n := models.Notification{
		ID:          uuid.NewString(),
		ProductName: productName,
		CreatedAt:   at,
	}
	if added {
		n.Type = "success"
		n.Action = "added"
		n.Message = productName + " added to watchlist!"
	} else {
		n.Type = "info"
		n.Action = "removed"
		n.Message = productName + " removed from watchlist"
	}
	return n
}
