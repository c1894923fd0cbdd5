package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated staff id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	s, ok := c.Get(ctxUserID).(string)
	if !ok || s == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Role returns the authenticated staff role, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// rateKeyUser identifies the caller for rate limiting; "anon" before auth.
func rateKeyUser(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
