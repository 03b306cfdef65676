// Package search proxies flight and hotel searches to the Amadeus
// self-service API.  Provider documents are returned verbatim; this service
// never interprets offers beyond picking hotel ids for the second hotel call.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iliyamo/tripbook/internal/circuitbreaker"
	"github.com/iliyamo/tripbook/internal/metrics"
)

const (
	tokenPath         = "/v1/security/oauth2/token"
	flightOffersPath  = "/v2/shopping/flight-offers"
	hotelsByCityPath  = "/v1/reference-data/locations/hotels/by-city"
	hotelOffersPath   = "/v3/shopping/hotel-offers"
	maxHotelsPerQuery = 10
	maxResponseBytes  = 8 << 20
)

var (
	// ErrProviderUnavailable is matched by every failure of the upstream
	// provider, including an open circuit breaker.
	ErrProviderUnavailable = errors.New("search provider unavailable")
	// ErrInvalidQuery is matched by query validation failures.
	ErrInvalidQuery = errors.New("invalid search query")
)

// ProviderError describes a failed upstream call.  Details is safe to show
// to clients.
type ProviderError struct {
	Status  int
	Details string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return "search provider: " + e.Details
	}
	return fmt.Sprintf("search provider returned %d: %s", e.Status, e.Details)
}

func (e *ProviderError) Unwrap() error { return ErrProviderUnavailable }

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to Amadeus with an auto-refreshing client-credentials token.
type Client struct {
	base    string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token fetch uses the same timeout as search calls.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
	hc := cc.Client(tokenCtx)
	hc.Timeout = cfg.Timeout

	cb := circuitbreaker.NewCircuitBreaker(5, 1, 30*time.Second)
	cb.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		metrics.ObserveBreakerTransition("amadeus", to.String())
		logger.Warn("amadeus circuit breaker state change", slog.String("from", from.String()), slog.String("to", to.String()))
	})
	return &Client{base: base, http: hc, breaker: cb, logger: logger}
}

// FlightQuery mirrors the query string of GET /api/flights/search.
type FlightQuery struct {
	Origin        string
	Destination   string
	DepartureDate string
	Adults        string
}

func (q *FlightQuery) Validate() error {
	if q.Origin == "" || q.Destination == "" || q.DepartureDate == "" {
		return fmt.Errorf("%w: origin, destination and departureDate are required", ErrInvalidQuery)
	}
	if q.Adults == "" {
		q.Adults = "1"
	}
	return nil
}

// HotelQuery mirrors the query string of GET /api/hotels/search.
type HotelQuery struct {
	CityCode     string
	CheckInDate  string
	CheckOutDate string
	Adults       string
}

func (q *HotelQuery) Validate() error {
	if q.CityCode == "" {
		return fmt.Errorf("%w: cityCode is required", ErrInvalidQuery)
	}
	if q.Adults == "" {
		q.Adults = "1"
	}
	return nil
}

// SearchFlights returns the provider's flight-offers document.
func (c *Client) SearchFlights(ctx context.Context, q FlightQuery) (json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{
		"originLocationCode":      {q.Origin},
		"destinationLocationCode": {q.Destination},
		"departureDate":           {q.DepartureDate},
		"adults":                  {q.Adults},
	}
	return c.timed(ctx, "flights", func() (json.RawMessage, error) {
		return c.get(ctx, flightOffersPath, params)
	})
}

// SearchHotels resolves up to ten hotels in the city and returns their
// offers.  A city without hotels yields {"data":[]}.
func (c *Client) SearchHotels(ctx context.Context, q HotelQuery) (json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return c.timed(ctx, "hotels", func() (json.RawMessage, error) {
		list, err := c.get(ctx, hotelsByCityPath, url.Values{"cityCode": {q.CityCode}})
		if err != nil {
			return nil, err
		}
		var hotels struct {
			Data []struct {
				HotelID string `json:"hotelId"`
			} `json:"data"`
		}
		if err := json.Unmarshal(list, &hotels); err != nil {
			return nil, &ProviderError{Details: "malformed hotel list"}
		}
		ids := make([]string, 0, maxHotelsPerQuery)
		for _, h := range hotels.Data {
			if h.HotelID == "" {
				continue
			}
			ids = append(ids, h.HotelID)
			if len(ids) == maxHotelsPerQuery {
				break
			}
		}
		if len(ids) == 0 {
			return json.RawMessage(`{"data":[]}`), nil
		}

		params := url.Values{
			"hotelIds": {strings.Join(ids, ",")},
			"adults":   {q.Adults},
		}
		if q.CheckInDate != "" {
			params.Set("checkInDate", q.CheckInDate)
		}
		if q.CheckOutDate != "" {
			params.Set("checkOutDate", q.CheckOutDate)
		}
		return c.get(ctx, hotelOffersPath, params)
	})
}

func (c *Client) timed(ctx context.Context, kind string, fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	start := time.Now()
	var out json.RawMessage
	err := c.breaker.Do(func() error {
		var err error
		out, err = fn()
		return err
	}, countsAgainstProvider)

	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, circuitbreaker.ErrOpen) {
			result = "breaker_open"
			err = &ProviderError{Details: "provider temporarily unavailable"}
		}
		c.logger.WarnContext(ctx, "search failed", slog.String("kind", kind), slog.Any("error", err))
	}
	metrics.ObserveSearch(kind, result, time.Since(start))
	return out, err
}

// countsAgainstProvider excludes client mistakes (4xx other than 429) so a
// user typing a bad airport code cannot open the breaker for everyone.
func countsAgainstProvider(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500 && pe.Status != http.StatusTooManyRequests {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{Details: describeTransportError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProviderError{Status: resp.StatusCode, Details: "read response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Status: resp.StatusCode, Details: describeProviderBody(body, resp.Status)}
	}
	if !json.Valid(body) {
		return nil, &ProviderError{Status: resp.StatusCode, Details: "malformed provider response"}
	}
	return json.RawMessage(body), nil
}

// describeProviderBody pulls the first human-readable message out of an
// Amadeus error document ({"errors":[{"title":..,"detail":..}]}).
func describeProviderBody(body []byte, fallback string) string {
	var doc struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &doc) == nil && len(doc.Errors) > 0 {
		if d := doc.Errors[0].Detail; d != "" {
			return d
		}
		if t := doc.Errors[0].Title; t != "" {
			return t
		}
	}
	return fallback
}

func describeTransportError(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return "provider authentication failed"
	}
	return "provider unreachable"
}
