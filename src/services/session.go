package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/models"
)

// Input events accepted from the front end.
const (
	EventSearchTextChanged      = "search-text-changed"
	EventProductFilterChanged   = "product-filter-changed"
	EventLocationFilterChanged  = "location-filter-changed"
	EventSortChanged            = "sort-changed"
	EventRetryRequested         = "retry-requested"
	EventItemDetailsRequested   = "item-details-requested"
	EventWatchlistToggleRequest = "item-watchlist-toggle-requested"
)

// InputEvent is one client-to-server event. Value carries the new text,
// filter value, sort key or product name depending on Type.
type InputEvent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Session holds one client's filter state and turns its input events into
// pushed messages. Search text changes are debounced; everything else
// recomputes immediately.
type Session struct {
	board     *BoardService
	out       Subscriber
	debouncer *Debouncer

	mu    sync.Mutex
	state models.FilterState
}

func NewSession(board *BoardService, out Subscriber, debounce time.Duration) *Session {
	return &Session{
		board:     board,
		out:       out,
		debouncer: NewDebouncer(debounce),
		state:     models.FilterState{SortKey: models.SortDate},
	}
}

// State returns the session's current filter state.
func (s *Session) State() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close cancels any pending debounced recompute.
func (s *Session) Close() {
	s.debouncer.Stop()
}

// PushView sends the board for the current state.
func (s *Session) PushView() error {
	view := s.board.View(s.State())
	return s.out.Send(Message{Type: MessageView, View: &view})
}

// Handle applies ev. Errors are returned only when the client could not be
// written to; user-facing failures are pushed as error messages.
func (s *Session) Handle(ctx context.Context, ev InputEvent) error {
	switch ev.Type {
	case EventSearchTextChanged:
		s.update(func(st *models.FilterState) { st.SearchText = ev.Value })
		s.debouncer.Trigger(func() {
			if err := s.PushView(); err != nil {
				logger.L.Warn("Debounced view push failed", "error", err)
			}
		})
		return nil

	case EventProductFilterChanged:
		s.update(func(st *models.FilterState) { st.SelectedProductName = ev.Value })
		return s.recompute()

	case EventLocationFilterChanged:
		s.update(func(st *models.FilterState) { st.SelectedLocation = ev.Value })
		return s.recompute()

	case EventSortChanged:
		s.update(func(st *models.FilterState) { st.SortKey = models.SortKey(ev.Value) })
		return s.recompute()

	case EventRetryRequested:
		if err := s.out.Send(Message{Type: MessageLoading, Loading: true}); err != nil {
			return err
		}
		if err := s.board.LoadData(ctx); err != nil && !errors.Is(err, ErrNoDataAvailable) {
			logger.L.Error("Reload failed", "error", err)
		}
		return s.recompute()

	case EventItemDetailsRequested:
		details, err := s.board.Details(ev.Value)
		if err != nil {
			return s.out.Send(Message{Type: MessageError, Error: err.Error()})
		}
		return s.out.Send(Message{Type: MessageDetails, Details: &details})

	case EventWatchlistToggleRequest:
		if _, _, err := s.board.ToggleWatchlist(ctx, ev.Value); err != nil {
			logger.L.Warn("Watchlist toggle failed", "productName", ev.Value, "error", err)
			return s.out.Send(Message{Type: MessageError, Error: err.Error()})
		}
		return s.PushView()

	default:
		return s.out.Send(Message{Type: MessageError, Error: fmt.Sprintf("unknown event type %q", ev.Type)})
	}
}

func (s *Session) update(fn func(st *models.FilterState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
}

// recompute pushes the view now. A pending debounced push is dropped since
// this view already includes the latest search text.
func (s *Session) recompute() error {
	s.debouncer.Stop()
	return s.PushView()
}
