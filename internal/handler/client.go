package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/poolhall-manager/internal/model"
	"github.com/iliyamo/poolhall-manager/internal/repository"
)

// ClientHandler serves /v1/clients.
type ClientHandler struct {
	Clients *repository.ClientRepo
}

func NewClientHandler(clients *repository.ClientRepo) *ClientHandler {
	return &ClientHandler{Clients: clients}
}

type clientReq struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

func (r clientReq) apply(cl *model.Client) string {
	if r.Name != nil {
		cl.Name = strings.TrimSpace(*r.Name)
	}
	if r.Phone != nil {
		cl.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.Email != nil {
		if e := strings.TrimSpace(*r.Email); e == "" {
			cl.Email = nil
		} else {
			cl.Email = &e
		}
	}
	switch {
	case cl.Name == "":
		return "name is required"
	case len(cl.Name) > 100:
		return "name must be at most 100 characters"
	case len(cl.Phone) > 20:
		return "phone must be at most 20 characters"
	}
	if cl.Email != nil {
		if _, err := mail.ParseAddress(*cl.Email); err != nil {
			return "email is not valid"
		}
	}
	return ""
}

// List returns clients by name; ?search= matches name, phone or email.
func (h *ClientHandler) List(c echo.Context) error {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return badRequest(c, "limit must be an integer")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	clients, err := h.Clients.List(ctx, repository.ClientFilter{Search: c.QueryParam("search"), Limit: limit})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": clients})
}

// Search is the autocomplete endpoint: up to ten clients whose name starts
// with q. An empty q returns an empty list.
func (h *ClientHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusOK, echo.Map{"items": []model.Client{}})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	clients, err := h.Clients.List(ctx, repository.ClientFilter{Prefix: q})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": clients})
}

func (h *ClientHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid client id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl, err := h.Clients.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *ClientHandler) Create(c echo.Context) error {
	var req clientReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	var cl model.Client
	if msg := req.apply(&cl); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Clients.Create(ctx, &cl); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *ClientHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid client id")
	}
	var req clientReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl, err := h.Clients.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if msg := req.apply(cl); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Clients.Update(ctx, cl); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}
