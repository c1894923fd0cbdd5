package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/poolhall-manager/internal/billing"
)

// StatsHandler serves the dashboard aggregates.
type StatsHandler struct {
	Billing *billing.Service
}

func NewStatsHandler(svc *billing.Service) *StatsHandler { return &StatsHandler{Billing: svc} }

// Get returns the summary; ?from= and ?to= bound the historical figures.
func (h *StatsHandler) Get(c echo.Context) error {
	loc := h.Billing.Location()
	from, ok := queryTime(c, "from", loc)
	if !ok {
		return badRequest(c, "from must be a date (YYYY-MM-DD) or RFC 3339 time")
	}
	to, ok := queryTime(c, "to", loc)
	if !ok {
		return badRequest(c, "to must be a date (YYYY-MM-DD) or RFC 3339 time")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Billing.Stats(ctx, &billing.DateRange{From: from, To: to})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
