package handler_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/poolhall-manager/internal/billing"
	"github.com/iliyamo/poolhall-manager/internal/config"
	"github.com/iliyamo/poolhall-manager/internal/handler"
	"github.com/iliyamo/poolhall-manager/internal/middleware"
	"github.com/iliyamo/poolhall-manager/internal/model"
	"github.com/iliyamo/poolhall-manager/internal/pricing"
	"github.com/iliyamo/poolhall-manager/internal/repository"
	"github.com/iliyamo/poolhall-manager/internal/router"
	"github.com/iliyamo/poolhall-manager/internal/testutil"
	"github.com/iliyamo/poolhall-manager/internal/utils"
)

const secret = "handler-test-secret"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type server struct {
	e       *echo.Echo
	db      *sql.DB
	clock   *clock
	manager string
	staff   string
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWithCache(t, config.CacheConfig{}, nil)
}

func newServerWithCache(t *testing.T, cacheCfg config.CacheConfig, rdb *redis.Client) *server {
	t.Helper()
	db := testutil.NewSQLite(t)
	clk := &clock{t: time.Date(2024, 4, 12, 18, 0, 0, 0, time.UTC)}
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	tables := repository.NewTableRepo(db)
	clients := repository.NewClientRepo(db)
	sessions := repository.NewSessionRepo(db)
	tariff := pricing.Tariff{
		Policy:         pricing.PolicyFlat,
		BaseRate:       decimal.NewFromInt(150),
		ReducedRate:    decimal.NewFromInt(135),
		ThresholdPrice: decimal.NewFromInt(1500),
		OffsetMinutes:  10,
	}
	svc := billing.NewService(db, tables, clients, sessions, tariff,
		billing.WithClock(clk.Now), billing.WithLocation(time.UTC))

	e := echo.New()
	router.RegisterRoutes(e)
	auth := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	router.RegisterAuth(e, auth)
	router.RegisterAPI(e, router.API{
		Auth:     auth,
		Tables:   handler.NewTableHandler(tables, svc),
		Clients:  handler.NewClientHandler(clients),
		Sessions: handler.NewSessionHandler(sessions, svc),
		Stats:    handler.NewStatsHandler(svc),
		Tariff:   handler.NewTariffHandler(svc),
	}, secret,
		middleware.NewTokenBucket(config.RateLimitConfig{}, nil),
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.NewCacheInvalidator(cacheCfg, rdb),
	)

	return &server{e: e, db: db, clock: clk, manager: token(t, 1, model.RoleManager), staff: token(t, 2, model.RoleStaff)}
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 15)
	require.NoError(t, err)
	return tok.Token
}

func (s *server) do(t *testing.T, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (s *server) createTable(t *testing.T, number int) uint64 {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/v1/tables", s.manager,
		`{"number":`+itoa(number)+`,"name":"Table","hourly_rate":"12.00"}`)
	require.Equal(t, http.StatusCreated, code, body)
	return uint64(body["id"].(float64))
}

func itoa(n int) string { return strconv.Itoa(n) }

func TestHealth(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	code, first := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"Boss@Hall.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, model.RoleManager, first["user"].(map[string]any)["role"])
	assert.Equal(t, "boss@hall.test", first["user"].(map[string]any)["email"])

	code, second := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"clerk@hall.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, model.RoleStaff, second["user"].(map[string]any)["role"])

	code, _ = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"clerk@hall.test","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"short@hall.test","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"boss@hall.test","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"nobody@hall.test","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, login := s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"boss@hall.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, code)
	access := login["access"].(map[string]any)["token"].(string)
	refresh := login["refresh"].(map[string]any)["token"].(string)

	code, me := s.do(t, http.MethodGet, "/v1/me", access, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.RoleManager, me["role"])

	code, rotated := s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, code)
	newRefresh := rotated["refresh"].(map[string]any)["token"].(string)
	assert.NotEqual(t, refresh, newRefresh)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, code, "a rotated refresh token is revoked")

	code, accessOnly := s.do(t, http.MethodPost, "/v1/auth/refresh-access", "", `{"refresh_token":"`+newRefresh+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, accessOnly, "access")

	code, _ = s.do(t, http.MethodPost, "/v1/auth/logout", "", `{"refresh_token":"`+newRefresh+`"}`)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/refresh-access", "", `{"refresh_token":"`+newRefresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogoutWithBearerRevokesAllTokens(t *testing.T) {
	s := newServer(t)
	code, reg := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"boss@hall.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, code)
	access := reg["access"].(map[string]any)["token"].(string)
	refresh := reg["refresh"].(map[string]any)["token"].(string)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/logout", access, "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProfileAndPasswordChange(t *testing.T) {
	s := newServer(t)
	code, reg := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"boss@hall.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, code)
	access := reg["access"].(map[string]any)["token"].(string)
	refresh := reg["refresh"].(map[string]any)["token"].(string)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"clerk@hall.test","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, code)

	code, me := s.do(t, http.MethodPut, "/v1/me", access, `{"email":" Owner@Hall.test "}`)
	require.Equal(t, http.StatusOK, code, me)
	assert.Equal(t, "owner@hall.test", me["email"])
	assert.Equal(t, model.RoleManager, me["role"])

	code, _ = s.do(t, http.MethodPut, "/v1/me", access, `{"email":"clerk@hall.test"}`)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(t, http.MethodPut, "/v1/me", access, `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, me = s.do(t, http.MethodPut, "/v1/me", access, `{}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "owner@hall.test", me["email"], "an empty body changes nothing")

	code, _ = s.do(t, http.MethodPut, "/v1/me/password", access, `{"old_password":"wrong-pass","new_password":"brand-new-pass"}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPut, "/v1/me/password", access, `{"old_password":"s3cret-pass","new_password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPut, "/v1/me/password", access, `{"old_password":"s3cret-pass","new_password":"brand-new-pass"}`)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, code, "a password change revokes refresh tokens")
	code, _ = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"owner@hall.test","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"owner@hall.test","password":"brand-new-pass"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPut, "/v1/me", "", `{"email":"x@hall.test"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConcurrentRegisterPromotesOneManager(t *testing.T) {
	s := newServer(t)

	const n = 6
	var wg sync.WaitGroup
	roles := make(chan any, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, body := s.do(t, http.MethodPost, "/v1/auth/register", "",
				`{"email":"racer`+itoa(i)+`@hall.test","password":"s3cret-pass"}`)
			if assert.Equal(t, http.StatusCreated, code) {
				roles <- body["user"].(map[string]any)["role"]
			}
		}(i)
	}
	wg.Wait()
	close(roles)

	managers := 0
	for r := range roles {
		if r == model.RoleManager {
			managers++
		}
	}
	assert.Equal(t, 1, managers)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newServer(t)
	code, body := s.do(t, http.MethodGet, "/v1/tables", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestTableEndpoints(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/tables", s.staff, `{"number":1,"name":"Snooker"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["error"])

	id := s.createTable(t, 1)
	s.createTable(t, 2)

	code, body = s.do(t, http.MethodPost, "/v1/tables", s.manager, `{"number":1,"name":"Again"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["error"])

	code, body = s.do(t, http.MethodPost, "/v1/tables", s.manager, `{"number":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", body["error"])

	code, body = s.do(t, http.MethodPut, "/v1/tables/"+itoa(int(id)), s.manager, `{"name":"Pool 1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pool 1", body["name"])
	assert.Equal(t, float64(1), body["number"])

	code, body = s.do(t, http.MethodPost, "/v1/tables/"+itoa(int(id))+"/toggle", s.manager, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["in_service"])

	code, body = s.do(t, http.MethodGet, "/v1/tables?available=true", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, _ = s.do(t, http.MethodGet, "/v1/tables?available=maybe", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/v1/tables/999", s.staff, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])

	code, _ = s.do(t, http.MethodGet, "/v1/tables/abc", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodDelete, "/v1/tables/"+itoa(int(id)), s.manager, "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestClientEndpoints(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/clients", s.staff, `{"name":"Karim","phone":"0555","email":"karim@hall.test"}`)
	require.Equal(t, http.StatusCreated, code)
	id := uint64(body["id"].(float64))
	code, _ = s.do(t, http.MethodPost, "/v1/clients", s.staff, `{"name":"Kamel"}`)
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPost, "/v1/clients", s.staff, `{"name":"Salim"}`)
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, "/v1/clients", s.staff, `{"name":"Karim"}`)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(t, http.MethodPost, "/v1/clients", s.staff, `{"name":"Bad","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, "/v1/clients", s.staff, `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/v1/clients/search?q=ka", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 2)

	code, body = s.do(t, http.MethodGet, "/v1/clients/search?q=", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 0)

	code, body = s.do(t, http.MethodGet, "/v1/clients?search=hall.test", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, body = s.do(t, http.MethodPut, "/v1/clients/"+itoa(int(id)), s.staff, `{"phone":"0777"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0777", body["phone"])
	assert.Equal(t, "Karim", body["name"])

	code, _ = s.do(t, http.MethodGet, "/v1/clients/42", s.staff, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	tableID := s.createTable(t, 1)
	tid := itoa(int(tableID))

	code, body := s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":`+tid+`}`)
	require.Equal(t, http.StatusCreated, code, body)
	sid := itoa(int(body["id"].(float64)))
	assert.Equal(t, true, body["in_progress"])
	assert.Equal(t, "0h 0min", body["duration"])

	code, body = s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":`+tid+`}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "table is occupied", body["message"])

	code, _ = s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":999}`)
	assert.Equal(t, http.StatusConflict, code)

	s.clock.Advance(65 * time.Minute)
	code, body = s.do(t, http.MethodGet, "/v1/sessions/"+sid, s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1h 5min", body["duration"])

	code, body = s.do(t, http.MethodPut, "/v1/sessions/"+sid+"/next-player", s.staff, `{"next_player":"Yacine"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Yacine", body["next_player"])

	code, body = s.do(t, http.MethodPost, "/v1/sessions/"+sid+"/stop", s.staff, `{"payer_name":"Rami"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["in_progress"])
	assert.Equal(t, "Rami", body["loser_name"])
	// flat: 1500 + (65-10)*135
	assert.Equal(t, "8925", body["price"])

	code, _ = s.do(t, http.MethodPost, "/v1/sessions/"+sid+"/stop", s.staff, "")
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodPost, "/v1/sessions/"+sid+"/pay", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["paid"])

	code, _ = s.do(t, http.MethodPost, "/v1/sessions/999/pay", s.staff, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodGet, "/v1/tables/"+tid, s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["occupied"])
}

func TestSessionListFilters(t *testing.T) {
	s := newServer(t)
	a, b := itoa(int(s.createTable(t, 1))), itoa(int(s.createTable(t, 2)))

	code, body := s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":`+a+`}`)
	require.Equal(t, http.StatusCreated, code)
	first := itoa(int(body["id"].(float64)))
	s.clock.Advance(5 * time.Minute)
	code, _ = s.do(t, http.MethodPost, "/v1/sessions/"+first+"/stop", s.staff, `{"payer_name":"Rami"}`)
	require.Equal(t, http.StatusOK, code)

	s.clock.Advance(time.Minute)
	code, _ = s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":`+b+`}`)
	require.Equal(t, http.StatusCreated, code)

	code, body = s.do(t, http.MethodGet, "/v1/sessions", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(20), body["page_size"])

	code, body = s.do(t, http.MethodGet, "/v1/sessions?in_progress=true", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = s.do(t, http.MethodGet, "/v1/sessions?search=ram&paid=false", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = s.do(t, http.MethodGet, "/v1/sessions?table_id="+b, s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = s.do(t, http.MethodGet, "/v1/sessions?from=2024-04-13", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["total"])

	code, body = s.do(t, http.MethodGet, "/v1/sessions?page=9223372036854775807&page_size=100", s.staff, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Empty(t, body["items"])
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(100), body["page_size"])

	for _, q := range []string{"paid=nope", "table_id=-1", "from=yesterday", "page=x", "page=99999999999999999999"} {
		code, _ = s.do(t, http.MethodGet, "/v1/sessions?"+q, s.staff, "")
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newServer(t)
	tid := itoa(int(s.createTable(t, 1)))

	code, body := s.do(t, http.MethodGet, "/v1/stats", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", body["total_revenue"])
	assert.Equal(t, float64(0), body["peak_hour"])
	assert.Equal(t, "1/1", body["tables_availability"])

	code, body = s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":`+tid+`}`)
	require.Equal(t, http.StatusCreated, code)
	sid := itoa(int(body["id"].(float64)))
	s.clock.Advance(5 * time.Minute)
	code, _ = s.do(t, http.MethodPost, "/v1/sessions/"+sid+"/stop", s.staff, "")
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/v1/stats?from=2024-04-12&to=2024-04-13", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "750", body["total_revenue"])
	assert.Equal(t, float64(1), body["unpaid_count"])
	assert.Equal(t, float64(18), body["peak_hour"])
	assert.Equal(t, "750", body["today_revenue"])

	code, _ = s.do(t, http.MethodGet, "/v1/stats?from=2024-04-13&to=2024-04-12", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/v1/stats?from=garbage", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatsCacheRefreshesAfterStopAndPay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := newServerWithCache(t, config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Hour,
		Prefix:       "test:stats",
		MaxBodyBytes: 1 << 20,
	}, rdb)
	tid := itoa(int(s.createTable(t, 1)))

	code, body := s.do(t, http.MethodPost, "/v1/sessions", s.staff, `{"table_id":`+tid+`}`)
	require.Equal(t, http.StatusCreated, code)
	sid := itoa(int(body["id"].(float64)))

	code, body = s.do(t, http.MethodGet, "/v1/stats", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", body["total_revenue"])
	assert.Equal(t, float64(1), body["active_count"])

	s.clock.Advance(5 * time.Minute)
	code, _ = s.do(t, http.MethodPost, "/v1/sessions/"+sid+"/stop", s.staff, "")
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/v1/stats", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "750", body["total_revenue"], "stop must not serve the cached revenue")
	assert.Equal(t, float64(1), body["unpaid_count"])

	code, _ = s.do(t, http.MethodPost, "/v1/sessions/"+sid+"/pay", s.staff, "")
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/v1/stats", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["unpaid_count"], "pay must not serve the cached unpaid count")
}

func TestTariffEndpoint(t *testing.T) {
	s := newServer(t)
	code, body := s.do(t, http.MethodGet, "/v1/tariff", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "flat", body["policy"])
	assert.Equal(t, "150", body["base_rate"])
	assert.Equal(t, float64(10), body["offset_minutes"])
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.db.Close())

	code, body := s.do(t, http.MethodGet, "/v1/tables", s.staff, "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal_error", body["error"])
	assert.Equal(t, "an unexpected error occurred", body["message"])
}
