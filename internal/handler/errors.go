package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/poolhall-manager/internal/repository"
)

// respondError maps domain errors onto HTTP responses. Anything that is not
// a known sentinel is logged and reported as a generic 500.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": message(err)})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": message(err)})
	case errors.Is(err, repository.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": message(err)})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": message(err)})
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   "internal_error",
		"message": "an unexpected error occurred",
	})
}

// message strips the sentinel prefix, so "validation failed: table_id is
// required" becomes "table_id is required".
func message(err error) string {
	msg := err.Error()
	for _, s := range []error{repository.ErrValidation, repository.ErrConflict, repository.ErrNotFound, repository.ErrForbidden} {
		msg = strings.TrimPrefix(msg, s.Error()+": ")
	}
	return msg
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": msg})
}
