package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/media"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/pagination"
	"github.com/iliyamo/movie-catalog/internal/service"
)

// Catalog is the movie service the catalog endpoints call.
type Catalog interface {
	CreateMovie(ctx context.Context, in service.CreateMovieInput) (*model.Movie, error)
	ListMovies(ctx context.Context, q service.ListQuery) (service.MoviePage, error)
	GetMovie(ctx context.Context, id string) (*model.Movie, error)
	UpdateMovie(ctx context.Context, id string, in service.UpdateMovieInput) (*model.Movie, error)
	DeleteMovie(ctx context.Context, id string) (string, error)
}

// MovieHandler serves the /movies resource.  Reads run under Timeout;
// writes that may upload a poster get UploadTimeout on top.
type MovieHandler struct {
	Catalog        Catalog
	Timeout        time.Duration
	UploadTimeout  time.Duration
	MaxPosterBytes int64
	Log            *zap.Logger
}

func NewMovieHandler(catalog Catalog, timeout, uploadTimeout time.Duration, maxPosterBytes int64, log *zap.Logger) *MovieHandler {
	return &MovieHandler{
		Catalog:        catalog,
		Timeout:        timeout,
		UploadTimeout:  uploadTimeout,
		MaxPosterBytes: maxPosterBytes,
		Log:            log,
	}
}

type movieResp struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	PublishingYear int       `json:"publishingYear"`
	PosterURL      *string   `json:"posterUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type movieListResp struct {
	Data []movieResp      `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

func toMovieResp(m *model.Movie) movieResp {
	return movieResp{
		ID:             m.ID,
		Title:          m.Title,
		PublishingYear: m.PublishingYear,
		PosterURL:      m.PosterURL,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// errPosterTooLarge is reported as 413.
var errPosterTooLarge = errors.New("poster exceeds size limit")

// Create handles POST /movies (multipart: title, publishingYear, poster).
func (h *MovieHandler) Create(c echo.Context) error {
	form, err := postForm(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid multipart body")
	}
	yearRaw, ok := formValue(form, "publishingYear")
	if !ok {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "publishingYear is required")
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "publishingYear must be an integer")
	}
	poster, err := h.readPoster(c)
	if err != nil {
		return h.posterError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout+h.UploadTimeout)
	defer cancel()

	m, err := h.Catalog.CreateMovie(ctx, service.CreateMovieInput{
		Title:          form.Get("title"),
		PublishingYear: year,
		Poster:         poster,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toMovieResp(m))
}

// List handles GET /movies?page&limit&search.
func (h *MovieHandler) List(c echo.Context) error {
	p := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	page, err := h.Catalog.ListMovies(ctx, service.ListQuery{
		Page:   p.Page,
		Limit:  p.Limit,
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	out := movieListResp{Data: make([]movieResp, 0, len(page.Data)), Meta: page.Meta}
	for i := range page.Data {
		out.Data = append(out.Data, toMovieResp(&page.Data[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	m, err := h.Catalog.GetMovie(ctx, c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toMovieResp(m))
}

// Update handles PUT /movies/:id.  Every field is optional; only the ones
// present in the form are changed.
func (h *MovieHandler) Update(c echo.Context) error {
	form, err := postForm(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid multipart body")
	}
	var in service.UpdateMovieInput
	if title, ok := formValue(form, "title"); ok {
		in.Title = &title
	}
	if yearRaw, ok := formValue(form, "publishingYear"); ok {
		year, err := strconv.Atoi(yearRaw)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, codeBadRequest, "publishingYear must be an integer")
		}
		in.PublishingYear = &year
	}
	poster, err := h.readPoster(c)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return h.posterError(c, err)
	}
	in.Poster = poster

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout+h.UploadTimeout)
	defer cancel()

	m, err := h.Catalog.UpdateMovie(ctx, c.Param("id"), in)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toMovieResp(m))
}

// Delete handles DELETE /movies/:id.
func (h *MovieHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout+h.UploadTimeout)
	defer cancel()

	msg, err := h.Catalog.DeleteMovie(ctx, c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// postForm parses the body (multipart or urlencoded) and returns only the
// body fields; query parameters are not form fields.
func postForm(c echo.Context) (url.Values, error) {
	if _, err := c.FormParams(); err != nil {
		return nil, err
	}
	return c.Request().PostForm, nil
}

// formValue reports whether key was sent at all, so an explicitly empty
// title reaches the service instead of being read as "unchanged".
func formValue(form url.Values, key string) (string, bool) {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

// readPoster loads the "poster" file part.  It returns http.ErrMissingFile
// when none was sent.
func (h *MovieHandler) readPoster(c echo.Context) (*media.Upload, error) {
	fh, err := c.FormFile("poster")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, http.ErrMissingFile
		}
		return nil, err
	}
	if h.MaxPosterBytes > 0 && fh.Size > h.MaxPosterBytes {
		return nil, errPosterTooLarge
	}
	return readUpload(fh, h.MaxPosterBytes)
}

func readUpload(fh *multipart.FileHeader, limit int64) (*media.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open poster: %w", err)
	}
	defer f.Close()

	r := io.Reader(f)
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read poster: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errPosterTooLarge
	}
	return &media.Upload{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}, nil
}

func (h *MovieHandler) posterError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "poster image is required")
	case errors.Is(err, errPosterTooLarge):
		return errorJSON(c, http.StatusRequestEntityTooLarge, codeTooLarge,
			fmt.Sprintf("poster must be at most %d bytes", h.MaxPosterBytes))
	}
	h.Log.Warn("poster upload unreadable", zap.Error(err))
	return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid poster upload")
}
