package services

import (
	"context"
	"errors"

	"github.com/username/priceboard/backend/src/models"
)

var (
	// ErrNoDataAvailable is the only failure surfaced to users: a load cycle
	// produced no usable items.
	ErrNoDataAvailable = errors.New("no commodity prices available from price source")
	ErrItemNotFound    = errors.New("item not found")
)

// PriceService defines the interface for fetching raw quotes from the price source.
type PriceService interface {
	FetchQuotes(ctx context.Context, identifiers []string) ([]*models.RawQuote, error)
}

// KVStore is the durable string key-value storage used by the watchlist.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Notifier receives user-visible notifications.
type Notifier interface {
	Publish(n models.Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n models.Notification)

func (f NotifierFunc) Publish(n models.Notification) { f(n) }
