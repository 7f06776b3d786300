package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/username/priceboard/backend/src/config"
	"github.com/username/priceboard/backend/src/database"
	"github.com/username/priceboard/backend/src/models"
	"github.com/username/priceboard/backend/src/processors"
	"github.com/username/priceboard/backend/src/services"
)

var testNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

type stubPrices struct {
	quotes []*models.RawQuote
	err    error
}

func (s *stubPrices) FetchQuotes(ctx context.Context, identifiers []string) ([]*models.RawQuote, error) {
	return s.quotes, s.err
}

func ts(v float64) *float64 { return &v }

type testEnv struct {
	prices *stubPrices
	board  *services.BoardService
	hub    *services.NotificationHub
	mux    *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	prices := &stubPrices{quotes: []*models.RawQuote{
		{Name: "corn", Exchange: "CBOT", Updated: ts(1700000000), Price: models.NumberPrice(4.5)},
		{Name: "gold", Exchange: "COMEX", Updated: ts(1709856000), Price: models.TextPrice("2034.55")},
	}}
	catalog := config.DefaultCatalog()
	exRate, err := processors.NewExchangeRate("USD", "GHS", 15.5)
	require.NoError(t, err)
	clock := func() time.Time { return testNow }

	hub := services.NewNotificationHub()
	watchlist := services.NewWatchlistService(database.NewMemoryKVStore(), "commodityWatchlist", hub, clock)
	board := services.NewBoardService(services.BoardOptions{
		Prices:      prices,
		Normalizer:  processors.NewQuoteProcessor(exRate, "API Ninjas", catalog.ExchangeLocations, clock),
		Categories:  processors.CategoryLookup(catalog.Categories),
		Rate:        exRate,
		Watchlist:   watchlist,
		Identifiers: []string{"corn", "gold"},
		Now:         clock,
	})
	require.NoError(t, board.LoadData(context.Background()))

	bh := NewBoardHandler(board)
	wh := NewWebSocketHandler(board, hub, 10*time.Millisecond, []string{"http://localhost:3000"})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices", bh.HandleGetPrices)
	mux.HandleFunc("GET /api/filters", bh.HandleGetFilters)
	mux.HandleFunc("GET /api/stats", bh.HandleGetStats)
	mux.HandleFunc("POST /api/reload", bh.HandleReload)
	mux.HandleFunc("GET /api/items/{name}", bh.HandleGetItem)
	mux.HandleFunc("GET /api/watchlist", bh.HandleGetWatchlist)
	mux.HandleFunc("POST /api/watchlist/toggle", bh.HandleToggleWatchlist)
	mux.HandleFunc("GET /ws", wh.HandleWebSocket)
	return &testEnv{prices: prices, board: board, hub: hub, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleGetPrices(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/prices?sort=price-high", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.BoardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Gold", view.Items[0].ProductName)
	assert.Equal(t, "Corn", view.Items[1].ProductName)
	assert.Equal(t, models.TrendDown, view.Items[1].Trend)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	rec = env.do(t, http.MethodGet, "/api/prices?sort=price-high", "", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/prices?location=Chicago,+Illinois", "", http.Header{"If-None-Match": {etag}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Corn", view.Items[0].ProductName)
}

func TestHandleGetFiltersAndStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/filters", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var options models.FilterOptions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	assert.Equal(t, []string{"Corn", "Gold"}, options.Products)
	assert.Equal(t, []string{"Chicago, Illinois", "New York, New York"}, options.Locations)

	rec = env.do(t, http.MethodGet, "/api/stats?search=corn", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, "2024-03-08", stats.LastUpdated)
}

func TestHandleReload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reload", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.prices.quotes, env.prices.err = make([]*models.RawQuote, 2), services.ErrNoDataAvailable
	rec = env.do(t, http.MethodPost, "/api/reload", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), services.NoDataMessage)
}

func TestHandleGetItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/items/Gold", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details models.ItemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, "Precious Metal", details.Category)
	assert.Equal(t, "$2034.55", details.FormattedOriginal)

	rec = env.do(t, http.MethodGet, "/api/items/Silver", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleToggleWatchlist(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/watchlist/toggle", `{"productName":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/watchlist/toggle", `{"productName":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/watchlist/toggle", `{"productName":"Silver"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/watchlist/toggle", `{"productName":"Corn"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp toggleWatchlistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Added)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, testNow, resp.Entries[0].AddedAt)

	rec = env.do(t, http.MethodGet, "/api/watchlist", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"productName":"Corn"`)

	rec = env.do(t, http.MethodPost, "/api/watchlist/toggle", `{"productName":"Corn"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Added)
	assert.NotNil(t, resp.Entries)
	assert.Empty(t, resp.Entries)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := CORSMiddleware([]string{"http://localhost:3000"})(next)

	req := httptest.NewRequest(http.MethodGet, "/api/prices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ETag", rec.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodOptions, "/api/prices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/prices", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimitMiddleware(rate.NewLimiter(0, 1))(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func readMessage(t *testing.T, conn *websocket.Conn) services.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg services.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.mux)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readMessage(t, conn)
	require.Equal(t, services.MessageView, msg.Type)
	require.Len(t, msg.View.Items, 2)
	assert.Equal(t, "Gold", msg.View.Items[0].ProductName, "newest first by default")

	require.NoError(t, conn.WriteJSON(services.InputEvent{Type: services.EventSortChanged, Value: "price-low"}))
	msg = readMessage(t, conn)
	require.Equal(t, services.MessageView, msg.Type)
	assert.Equal(t, "Corn", msg.View.Items[0].ProductName)

	require.NoError(t, conn.WriteJSON(services.InputEvent{Type: services.EventWatchlistToggleRequest, Value: "Corn"}))
	msg = readMessage(t, conn)
	require.Equal(t, services.MessageNotification, msg.Type)
	assert.Equal(t, "Corn added to watchlist!", msg.Notification.Message)
	msg = readMessage(t, conn)
	require.Equal(t, services.MessageView, msg.Type)
	assert.True(t, msg.View.Items[0].InWatchlist)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readMessage(t, conn)
	assert.Equal(t, services.MessageError, msg.Type)

	require.NoError(t, conn.WriteJSON(services.InputEvent{Type: services.EventSearchTextChanged, Value: "gold"}))
	msg = readMessage(t, conn)
	require.Equal(t, services.MessageView, msg.Type)
	require.Len(t, msg.View.Items, 1)
	assert.Equal(t, "Gold", msg.View.Items[0].ProductName)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.mux)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
