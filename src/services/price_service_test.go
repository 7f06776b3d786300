package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuoteServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchQuotes_PositionalWithPartialFailure(t *testing.T) {
	var sawKey atomic.Bool
	srv := newQuoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "secret" {
			sawKey.Store(true)
		}
		switch r.URL.Query().Get("name") {
		case "corn":
			fmt.Fprint(w, `{"name":"Corn Futures","exchange":"CBOT","updated":1700000000,"price":4.5}`)
		case "gold":
			fmt.Fprint(w, `[{"name":"Gold Futures","exchange":"COMEX","price":"2034.55"}]`)
		case "wheat":
			http.Error(w, `{"error":"premium only"}`, http.StatusForbidden)
		case "oat":
			fmt.Fprint(w, `{"name":`)
		case "lumber":
			fmt.Fprint(w, `[]`)
		case "soybean oil":
			fmt.Fprint(w, `{"name":"Soybean Oil","price":48.2}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	svc := NewPriceService(srv.URL, "secret", 0)
	quotes, err := svc.FetchQuotes(context.Background(), []string{"corn", "wheat", "gold", "oat", "lumber", "copper", "soybean oil"})
	require.NoError(t, err)
	require.Len(t, quotes, 7)

	require.NotNil(t, quotes[0])
	assert.Equal(t, "Corn Futures", quotes[0].Name)
	assert.Nil(t, quotes[1])
	require.NotNil(t, quotes[2])
	assert.Equal(t, "Gold Futures", quotes[2].Name)
	assert.Nil(t, quotes[3])
	assert.Nil(t, quotes[4])
	assert.Nil(t, quotes[5])
	require.NotNil(t, quotes[6], "identifier must be query-escaped")
	assert.Equal(t, "Soybean Oil", quotes[6].Name)
	assert.True(t, sawKey.Load())
}

func TestFetchQuotes_AllFail(t *testing.T) {
	srv := newQuoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	svc := NewPriceService(srv.URL, "", 0)
	quotes, err := svc.FetchQuotes(context.Background(), []string{"corn", "gold"})
	assert.ErrorIs(t, err, ErrNoDataAvailable)
	assert.Equal(t, 2, len(quotes))
	assert.Nil(t, quotes[0])
	assert.Nil(t, quotes[1])
}

func TestFetchQuotes_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := NewPriceService(url, "", time.Second)
	_, err := svc.FetchQuotes(context.Background(), []string{"corn"})
	assert.ErrorIs(t, err, ErrNoDataAvailable)
}

func TestFetchQuotes_RequestsRunConcurrently(t *testing.T) {
	const n = 5
	var (
		mu      sync.Mutex
		arrived int
		all     = make(chan struct{})
	)
	var timedOut atomic.Bool
	srv := newQuoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrived++
		if arrived == n {
			close(all)
		}
		mu.Unlock()

		select {
		case <-all:
		case <-time.After(3 * time.Second):
			timedOut.Store(true)
		}
		fmt.Fprintf(w, `{"name":%q,"price":1}`, r.URL.Query().Get("name"))
	})

	svc := NewPriceService(srv.URL, "", 0)
	quotes, err := svc.FetchQuotes(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.False(t, timedOut.Load(), "requests were not in flight at the same time")
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		require.NotNil(t, quotes[i])
		assert.Equal(t, id, quotes[i].Name)
	}
}

func TestFetchError(t *testing.T) {
	inner := errors.New("boom")
	err := &FetchError{Identifier: "corn", Class: FailureOutage, StatusCode: 503, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "corn")
	assert.Contains(t, err.Error(), "503")

	assert.Equal(t, FailureUnsupported, classifyStatus(http.StatusForbidden))
	assert.Equal(t, FailureUnsupported, classifyStatus(http.StatusBadRequest))
	assert.Equal(t, FailureOutage, classifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, FailureOutage, classifyStatus(http.StatusInternalServerError))
}
