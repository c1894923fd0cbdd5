// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/poolhall-manager/internal/handler"
	"github.com/iliyamo/poolhall-manager/internal/middleware"
	"github.com/iliyamo/poolhall-manager/internal/model"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the staff authentication routes. Register, login,
// refresh and logout live under /v1/auth and need no access token; logout
// accepts either a refresh token or a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// new access token, refresh token left as is
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
}

// API groups the handlers served under the protected /v1 prefix.
type API struct {
	Auth     *handler.AuthHandler
	Tables   *handler.TableHandler
	Clients  *handler.ClientHandler
	Sessions *handler.SessionHandler
	Stats    *handler.StatsHandler
	Tariff   *handler.TariffHandler
}

// RegisterAPI registers the back-office endpoints. Every route needs a valid
// access token for a MANAGER or STAFF account and passes the rate limiter;
// table writes are reserved to managers and the stats response is cached.
// Every successful write drops the cached stats through invalidate.
func RegisterAPI(e *echo.Echo, api API, jwtSecret string, rateLimit, cache, invalidate echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager, model.RoleStaff),
		rateLimit,
		invalidate,
	)
	manager := middleware.RequireRole(model.RoleManager)

	g.GET("/me", api.Auth.Me)
	g.PUT("/me", api.Auth.UpdateMe)
	g.PUT("/me/password", api.Auth.ChangePassword)

	// ---- Tables ----
	g.GET("/tables", api.Tables.List)
	g.GET("/tables/:id", api.Tables.Get)
	g.POST("/tables", api.Tables.Create, manager)
	g.PUT("/tables/:id", api.Tables.Update, manager)
	g.DELETE("/tables/:id", api.Tables.Delete, manager)
	g.POST("/tables/:id/toggle", api.Tables.Toggle, manager)

	// ---- Clients ----
	g.GET("/clients", api.Clients.List)
	g.GET("/clients/search", api.Clients.Search)
	g.GET("/clients/:id", api.Clients.Get)
	g.POST("/clients", api.Clients.Create)
	g.PUT("/clients/:id", api.Clients.Update)

	// ---- Sessions ----
	g.GET("/sessions", api.Sessions.List)
	g.POST("/sessions", api.Sessions.Start)
	g.GET("/sessions/:id", api.Sessions.Get)
	g.POST("/sessions/:id/stop", api.Sessions.Stop)
	g.POST("/sessions/:id/pay", api.Sessions.Pay)
	g.PUT("/sessions/:id/next-player", api.Sessions.NextPlayer)

	g.GET("/stats", api.Stats.Get, cache)
	g.GET("/tariff", api.Tariff.Get)
}
