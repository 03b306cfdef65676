package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripbook/internal/search"
)

// Searcher is implemented by *search.Client.
type Searcher interface {
	SearchFlights(ctx context.Context, q search.FlightQuery) (json.RawMessage, error)
	SearchHotels(ctx context.Context, q search.HotelQuery) (json.RawMessage, error)
}

// SearchHandler proxies the public search endpoints.  A nil Client means no
// provider credentials were configured.
type SearchHandler struct {
	Client Searcher
}

func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{Client: s}
}

// Flights: GET /api/flights/search?origin&destination&departureDate&adults
func (h *SearchHandler) Flights(c echo.Context) error {
	if h.Client == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "search is not configured"})
	}
	q := search.FlightQuery{
		Origin:        c.QueryParam("origin"),
		Destination:   c.QueryParam("destination"),
		DepartureDate: c.QueryParam("departureDate"),
		Adults:        c.QueryParam("adults"),
	}
	doc, err := h.Client.SearchFlights(c.Request().Context(), q)
	if err != nil {
		return searchError(c, "Flight search failed", err)
	}
	return c.JSONBlob(http.StatusOK, doc)
}

// Hotels: GET /api/hotels/search?cityCode&checkInDate&checkOutDate&adults
func (h *SearchHandler) Hotels(c echo.Context) error {
	if h.Client == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "search is not configured"})
	}
	q := search.HotelQuery{
		CityCode:     c.QueryParam("cityCode"),
		CheckInDate:  c.QueryParam("checkInDate"),
		CheckOutDate: c.QueryParam("checkOutDate"),
		Adults:       c.QueryParam("adults"),
	}
	doc, err := h.Client.SearchHotels(c.Request().Context(), q)
	if err != nil {
		return searchError(c, "Hotel search failed", err)
	}
	return c.JSONBlob(http.StatusOK, doc)
}

func searchError(c echo.Context, msg string, err error) error {
	if errors.Is(err, search.ErrInvalidQuery) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	details := "search provider unavailable"
	var pe *search.ProviderError
	if errors.As(err, &pe) {
		details = pe.Details
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": msg, "details": details})
}
