package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/poolhall-manager/internal/billing"
	"github.com/iliyamo/poolhall-manager/internal/model"
	"github.com/iliyamo/poolhall-manager/internal/repository"
)

// SessionHandler serves /v1/sessions. Reads go to the repository, every
// state change goes through the billing service.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Billing  *billing.Service
}

func NewSessionHandler(sessions *repository.SessionRepo, svc *billing.Service) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Billing: svc}
}

// sessionView adds the human readable play time to a session.
type sessionView struct {
	model.Session
	Duration string `json:"duration"`
}

func (h *SessionHandler) view(s model.Session) sessionView {
	return sessionView{Session: s, Duration: model.FormatDuration(s.Elapsed(h.Billing.Now()))}
}

type startReq struct {
	TableID  uint64  `json:"table_id"`
	ClientID *uint64 `json:"client_id"`
}
type stopReq struct {
	PayerName string `json:"payer_name"`
}
type nextPlayerReq struct {
	NextPlayer string `json:"next_player"`
}

// List returns one page of sessions, newest first.
func (h *SessionHandler) List(c echo.Context) error {
	f := repository.SessionFilter{Search: c.QueryParam("search")}
	var ok bool
	if f.Paid, ok = queryBool(c, "paid"); !ok {
		return badRequest(c, "paid must be true or false")
	}
	if f.InProgress, ok = queryBool(c, "in_progress"); !ok {
		return badRequest(c, "in_progress must be true or false")
	}
	if f.TableID, ok = queryUint(c, "table_id"); !ok {
		return badRequest(c, "table_id must be a positive integer")
	}
	loc := h.Billing.Location()
	if f.From, ok = queryTime(c, "from", loc); !ok {
		return badRequest(c, "from must be a date (YYYY-MM-DD) or RFC 3339 time")
	}
	if f.To, ok = queryTime(c, "to", loc); !ok {
		return badRequest(c, "to must be a date (YYYY-MM-DD) or RFC 3339 time")
	}
	if f.Page, ok = queryInt(c, "page"); !ok {
		return badRequest(c, "page must be an integer")
	}
	if f.PageSize, ok = queryInt(c, "page_size"); !ok {
		return badRequest(c, "page_size must be an integer")
	}
	f.Normalize()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, total, err := h.Sessions.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, h.view(s))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      f.Page,
		"page_size": f.PageSize,
	})
}

func (h *SessionHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(*s))
}

// Start claims a table and opens a session on it.
func (h *SessionHandler) Start(c echo.Context) error {
	var req startReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Billing.StartSession(ctx, req.TableID, req.ClientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, h.view(*s))
}

// Stop ends the game, prices it and records the payer when named.
func (h *SessionHandler) Stop(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	var req stopReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Billing.StopSession(ctx, id, req.PayerName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(*s))
}

func (h *SessionHandler) Pay(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Billing.MarkPaid(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(*s))
}

func (h *SessionHandler) NextPlayer(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid session id")
	}
	var req nextPlayerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.NextPlayer) > 100 {
		return badRequest(c, "next_player must be at most 100 characters")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Billing.SetNextPlayer(ctx, id, req.NextPlayer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(*s))
}
