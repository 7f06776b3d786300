package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/models"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
)

// FailureClass tells apart why a single identifier produced no quote.
type FailureClass string

const (
	// FailureUnsupported: the source rejected the identifier (unknown name or
	// not available at the current access tier).
	FailureUnsupported FailureClass = "unsupported"
	// FailureOutage: transport errors, rate limiting and server errors.
	FailureOutage FailureClass = "outage"
	// FailureMalformed: the source answered 2xx with an unusable body.
	FailureMalformed FailureClass = "malformed"
)

// FetchError describes a failed request for one identifier. It is logged by
// the price service and never returned from FetchQuotes.
type FetchError struct {
	Identifier string
	Class      FailureClass
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.Identifier, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Identifier, e.Class, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func classifyStatus(code int) FailureClass {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusPaymentRequired,
		http.StatusForbidden, http.StatusNotFound:
		return FailureUnsupported
	default:
		return FailureOutage
	}
}

// priceServiceImpl implements the PriceService interface against an
// API Ninjas style commodity price endpoint.
type priceServiceImpl struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewPriceService creates a price service. A zero timeout leaves individual
// requests unbounded; the caller's context still applies.
func NewPriceService(baseURL, apiKey string, timeout time.Duration) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &priceServiceImpl{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// FetchQuotes requests every identifier concurrently and waits for all of
// them. quotes[i] holds the result for identifiers[i], or nil if that request
// failed. ErrNoDataAvailable is returned only when every request failed.
func (s *priceServiceImpl) FetchQuotes(ctx context.Context, identifiers []string) ([]*models.RawQuote, error) {
	startTime := time.Now()
	quotes := make([]*models.RawQuote, len(identifiers))

	var g errgroup.Group
	for i, id := range identifiers {
		g.Go(func() error {
			quote, err := s.fetchQuote(ctx, id)
			if err != nil {
				logFetchFailure(err)
				return nil
			}
			quotes[i] = quote
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, q := range quotes {
		if q != nil {
			succeeded++
		}
	}
	logger.L.Info("Price fetch finished", "requested", len(identifiers), "succeeded", succeeded, "duration", time.Since(startTime))

	if succeeded == 0 {
		return quotes, ErrNoDataAvailable
	}
	return quotes, nil
}

func logFetchFailure(err error) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Class == FailureUnsupported {
		logger.L.Info("Price source does not serve identifier", "identifier", fe.Identifier, "status", fe.StatusCode)
		return
	}
	logger.L.Warn("Price fetch failed", "error", err)
}

func (s *priceServiceImpl) fetchQuote(ctx context.Context, identifier string) (*models.RawQuote, error) {
	reqURL := s.baseURL + "?name=" + url.QueryEscape(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Identifier: identifier, Class: FailureOutage, Err: err}
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Identifier: identifier, Class: FailureOutage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Identifier: identifier,
			Class:      classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("non-success response: %s", string(bodyBytes)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Identifier: identifier, Class: FailureOutage, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	quote, err := models.DecodeQuote(body)
	if err != nil {
		return nil, &FetchError{Identifier: identifier, Class: FailureMalformed, StatusCode: resp.StatusCode, Err: err}
	}
	return quote, nil
}
