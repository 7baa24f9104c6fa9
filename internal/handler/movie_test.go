package handler

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/service"
	"github.com/iliyamo/movie-catalog/internal/service/servicetest"
)

const testMaxPoster = 64

type movieServer struct {
	e      *echo.Echo
	movies *servicetest.Movies
	media  *servicetest.Media
}

func newMovieServer(t *testing.T) *movieServer {
	t.Helper()
	s := &movieServer{movies: servicetest.NewMovies(), media: servicetest.NewMedia()}
	catalog := service.NewCatalogService(s.movies, s.media, &servicetest.Events{},
		service.CatalogConfig{StrictDelete: true, MediaFolder: "movies"}, zap.NewNop())
	h := NewMovieHandler(catalog, 5*time.Second, 5*time.Second, testMaxPoster, zap.NewNop())

	s.e = echo.New()
	s.e.HTTPErrorHandler = HTTPErrorHandler(zap.NewNop())
	s.e.POST("/movies", h.Create)
	s.e.GET("/movies", h.List)
	s.e.GET("/movies/:id", h.Get)
	s.e.PUT("/movies/:id", h.Update)
	s.e.DELETE("/movies/:id", h.Delete)
	return s
}

// multipartBody builds a form with the given fields and, when poster is
// non-nil, a "poster" file part.
func multipartBody(t *testing.T, fields map[string]string, poster []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if poster != nil {
		fw, err := w.CreateFormFile("poster", "poster.jpg")
		require.NoError(t, err)
		_, err = fw.Write(poster)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (s *movieServer) send(t *testing.T, method, target string, fields map[string]string, poster []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, fields, poster)
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *movieServer) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMovieHandler_Create(t *testing.T) {
	s := newMovieServer(t)

	rec := s.send(t, http.MethodPost, "/movies", map[string]string{"title": "Inception", "publishingYear": "2010"}, []byte("jpeg"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Inception", body["title"])
	assert.EqualValues(t, 2010, body["publishingYear"])
	assert.Contains(t, body["posterUrl"], servicetest.BaseURL)
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotEmpty(t, body["updatedAt"])
	assert.NotContains(t, body, "posterKey")
}

func TestMovieHandler_CreateRejects(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		poster []byte
		status int
	}{
		{"no poster", map[string]string{"title": "Up", "publishingYear": "2009"}, nil, http.StatusBadRequest},
		{"no year", map[string]string{"title": "Up"}, []byte("jpeg"), http.StatusBadRequest},
		{"bad year", map[string]string{"title": "Up", "publishingYear": "two thousand"}, []byte("jpeg"), http.StatusBadRequest},
		{"no title", map[string]string{"publishingYear": "2009"}, []byte("jpeg"), http.StatusBadRequest},
		{"poster too large", map[string]string{"title": "Up", "publishingYear": "2009"}, bytes.Repeat([]byte("x"), testMaxPoster+1), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newMovieServer(t)
			rec := s.send(t, http.MethodPost, "/movies", tc.fields, tc.poster)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
			assert.Zero(t, s.movies.Len())
			assert.Zero(t, s.media.Len())
		})
	}
}

func TestMovieHandler_MediaHostDown(t *testing.T) {
	s := newMovieServer(t)
	s.media.UploadErr = errors.New("connection reset")

	rec := s.send(t, http.MethodPost, "/movies", map[string]string{"title": "Up", "publishingYear": "2009"}, []byte("jpeg"))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_unavailable", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestMovieHandler_ListShape(t *testing.T) {
	s := newMovieServer(t)

	rec := s.get("/movies?search=nothing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"meta":{"page":1,"limit":10,"totalItems":0,"totalPages":0}}`, rec.Body.String())

	for _, title := range []string{"Alien", "Aliens", "Prometheus"} {
		require.Equal(t, http.StatusCreated,
			s.send(t, http.MethodPost, "/movies", map[string]string{"title": title, "publishingYear": "1986"}, []byte("jpeg")).Code)
	}
	body := decode(t, s.get("/movies?search=ALIEN&limit=1&page=2"))
	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 2, meta["totalItems"])
	assert.EqualValues(t, 2, meta["totalPages"])
	assert.EqualValues(t, 2, meta["page"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Alien", data[0].(map[string]any)["title"])
}

func TestMovieHandler_UpdatePartial(t *testing.T) {
	s := newMovieServer(t)
	created := decode(t, s.send(t, http.MethodPost, "/movies", map[string]string{"title": "Heat", "publishingYear": "1995"}, []byte("jpeg")))
	id := created["id"].(string)

	rec := s.send(t, http.MethodPut, "/movies/"+id, map[string]string{"publishingYear": "1996"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Heat", body["title"])
	assert.EqualValues(t, 1996, body["publishingYear"])
	assert.Equal(t, created["posterUrl"], body["posterUrl"])

	rec = s.send(t, http.MethodPut, "/movies/"+id, map[string]string{"title": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.send(t, http.MethodPut, "/movies/"+id, nil, []byte("new-jpeg"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, created["posterUrl"], decode(t, rec)["posterUrl"])

	rec = s.send(t, http.MethodPut, "/movies/missing", map[string]string{"title": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMovieHandler_GetDelete(t *testing.T) {
	s := newMovieServer(t)
	created := decode(t, s.send(t, http.MethodPost, "/movies", map[string]string{"title": "Ronin", "publishingYear": "1998"}, []byte("jpeg")))
	id := created["id"].(string)

	assert.Equal(t, http.StatusOK, s.get("/movies/"+id).Code)

	req := httptest.NewRequest(http.MethodDelete, "/movies/"+id, nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Movie deleted successfully", decode(t, rec)["message"])

	missing := s.get("/movies/" + id)
	require.Equal(t, http.StatusNotFound, missing.Code)
	body := decode(t, missing)
	assert.Equal(t, "not_found", body["error"])
	assert.Equal(t, "Movie not found", body["message"])

	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/movies/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
