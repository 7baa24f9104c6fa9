package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/service"
	"github.com/iliyamo/movie-catalog/internal/service/servicetest"
)

const secret = "router-secret"

func newApp(t *testing.T) *echo.Echo {
	t.Helper()
	log := zap.NewNop()
	auth := service.NewAuthService(servicetest.NewUsers(), service.AuthConfig{
		Secret: secret, AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: bcrypt.MinCost,
	}, log)
	catalog := service.NewCatalogService(servicetest.NewMovies(), servicetest.NewMedia(), &servicetest.Events{},
		service.CatalogConfig{StrictDelete: true, MediaFolder: "movies"}, log)

	authLimit := middleware.NewTokenBucket(config.RateLimitConfig{
		Enabled: true, Capacity: 5, RefillTokens: 5, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip_route", Prefix: "rl:auth",
	}, nil, log)

	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(auth, 5*time.Second, log), secret, authLimit)
	RegisterMovies(e, handler.NewMovieHandler(catalog, 5*time.Second, 5*time.Second, 2<<20, log), secret)
	return e
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func formReq(t *testing.T, method, path, token string, fields map[string]string, poster []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if poster != nil {
		fw, err := w.CreateFormFile("poster", "poster.jpg")
		require.NoError(t, err)
		_, _ = fw.Write(poster)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func authed(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	rec := do(newApp(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestInceptionScenario(t *testing.T) {
	e := newApp(t)

	reg := do(e, jsonReq(http.MethodPost, "/auth/register", `{"email":"cobb@dream.io","password":"totem"}`))
	require.Equal(t, http.StatusCreated, reg.Code, reg.Body.String())
	token := body(t, reg)["accessToken"].(string)

	created := do(e, formReq(t, http.MethodPost, "/movies", token,
		map[string]string{"title": "Inception", "publishingYear": "2010"}, []byte("jpeg")))
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	movie := body(t, created)
	id := movie["id"].(string)
	poster := movie["posterUrl"].(string)
	require.NotEmpty(t, poster)

	updated := do(e, formReq(t, http.MethodPut, "/movies/"+id, token, map[string]string{"publishingYear": "2011"}, nil))
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	u := body(t, updated)
	assert.EqualValues(t, 2011, u["publishingYear"])
	assert.Equal(t, poster, u["posterUrl"])
	assert.Equal(t, "Inception", u["title"])

	deleted := do(e, authed(http.MethodDelete, "/movies/"+id, token))
	require.Equal(t, http.StatusOK, deleted.Code)

	gone := do(e, authed(http.MethodGet, "/movies/"+id, token))
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestMoviesRequireAccessToken(t *testing.T) {
	e := newApp(t)
	reg := body(t, do(e, jsonReq(http.MethodPost, "/auth/register", `{"email":"mal@dream.io","password":"limbo"}`)))

	assert.Equal(t, http.StatusUnauthorized, do(e, httptest.NewRequest(http.MethodGet, "/movies", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, authed(http.MethodGet, "/movies", "bogus")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, authed(http.MethodGet, "/movies", reg["refreshToken"].(string))).Code)
	assert.Equal(t, http.StatusOK, do(e, authed(http.MethodGet, "/movies", reg["accessToken"].(string))).Code)
}

func TestAuthRateLimit(t *testing.T) {
	e := newApp(t)
	for i := 0; i < 5; i++ {
		rec := do(e, jsonReq(http.MethodPost, "/auth/login", `{"email":"x@dream.io","password":"y"}`))
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	rec := do(e, jsonReq(http.MethodPost, "/auth/login", `{"email":"x@dream.io","password":"y"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Register has its own bucket; refresh is not limited.
	assert.Equal(t, http.StatusCreated, do(e, jsonReq(http.MethodPost, "/auth/register", `{"email":"x@dream.io","password":"y"}`)).Code)
	for i := 0; i < 7; i++ {
		assert.Equal(t, http.StatusUnauthorized, do(e, jsonReq(http.MethodPost, "/auth/refresh", `{"refreshToken":"x"}`)).Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	rec := do(newApp(t), httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body(t, rec)["error"])
}
