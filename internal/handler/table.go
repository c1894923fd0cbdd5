package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/poolhall-manager/internal/billing"
	"github.com/iliyamo/poolhall-manager/internal/model"
	"github.com/iliyamo/poolhall-manager/internal/repository"
)

// TableHandler serves /v1/tables.
type TableHandler struct {
	Tables  *repository.TableRepo
	Billing *billing.Service
}

func NewTableHandler(tables *repository.TableRepo, svc *billing.Service) *TableHandler {
	return &TableHandler{Tables: tables, Billing: svc}
}

type tableReq struct {
	Number     *int             `json:"number"`
	Name       *string          `json:"name"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
}

// apply copies the fields present in the request onto t.
func (r tableReq) apply(t *model.Table) string {
	if r.Number != nil {
		t.Number = *r.Number
	}
	if r.Name != nil {
		t.Name = strings.TrimSpace(*r.Name)
	}
	if r.HourlyRate != nil {
		t.HourlyRate = *r.HourlyRate
	}
	switch {
	case t.Number <= 0:
		return "number must be a positive integer"
	case len(t.Name) > 100:
		return "name must be at most 100 characters"
	case t.HourlyRate.IsNegative():
		return "hourly_rate must not be negative"
	}
	return ""
}

// List returns every table; ?available=true keeps the ones a game can start on.
func (h *TableHandler) List(c echo.Context) error {
	avail, ok := queryBool(c, "available")
	if !ok {
		return badRequest(c, "available must be true or false")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tables, err := h.Tables.List(ctx, repository.TableFilter{Available: avail})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tables})
}

func (h *TableHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid table id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tables.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TableHandler) Create(c echo.Context) error {
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t := model.Table{HourlyRate: decimal.Zero}
	if msg := req.apply(&t); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tables.Create(ctx, &t); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Update applies a partial update to number, name and hourly rate.
func (h *TableHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid table id")
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tables.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if msg := req.apply(t); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Tables.Update(ctx, t); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TableHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid table id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tables.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Toggle flips the table's in-service flag.
func (h *TableHandler) Toggle(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid table id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Billing.ToggleTableAvailability(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
