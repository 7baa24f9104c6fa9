package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/media"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/pagination"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

// MaxTitleLength is the longest title, in characters, the movies table holds.
const MaxTitleLength = 255

const (
	msgMovieNotFound = "Movie not found"
	msgMovieDeleted  = "Movie deleted successfully"
	msgTitleTooLong  = "title must be at most 255 characters"
)

// MovieStore is the movie catalog store.
type MovieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	List(ctx context.Context, q repository.MovieQuery) ([]model.Movie, int, error)
	Update(ctx context.Context, id string, p repository.MoviePatch) error
	Delete(ctx context.Context, id string) error
}

// CatalogConfig controls poster handling.  With StrictDelete a failed
// poster destroy aborts the delete; otherwise it is logged and the record
// is removed anyway.  MediaFolder is used to derive keys for records that
// predate the poster_key column.
type CatalogConfig struct {
	StrictDelete bool
	MediaFolder  string
}

// CreateMovieInput is a new catalog record.  Poster is required.
type CreateMovieInput struct {
	Title          string
	PublishingYear int
	Poster         *media.Upload
}

// UpdateMovieInput holds the fields to change.  Nil fields are kept.
type UpdateMovieInput struct {
	Title          *string
	PublishingYear *int
	Poster         *media.Upload
}

// ListQuery is a page request with an optional title filter.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// MoviePage is one page of movies, newest first, with its metadata.
type MoviePage struct {
	Data []model.Movie
	Meta pagination.Meta
}

// CatalogService keeps movie records and their posters at the media host
// in step.  There is no transaction spanning both: an update destroys the
// old poster before uploading the new one, and a crash in between leaves
// the record without a live poster.
type CatalogService struct {
	movies MovieStore
	media  media.Host
	events queue.Publisher
	cfg    CatalogConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewCatalogService(movies MovieStore, host media.Host, events queue.Publisher, cfg CatalogConfig, log *zap.Logger) *CatalogService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &CatalogService{movies: movies, media: host, events: events, cfg: cfg, log: log, now: time.Now}
}

// CreateMovie uploads the poster and stores the record.  When the upload
// fails nothing is stored.
func (s *CatalogService) CreateMovie(ctx context.Context, in CreateMovieInput) (*model.Movie, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, newError(ErrInvalidArgument, "title is required", nil)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, newError(ErrInvalidArgument, msgTitleTooLong, nil)
	}
	if in.Poster == nil || len(in.Poster.Data) == 0 {
		return nil, newError(ErrInvalidArgument, "poster image is required", nil)
	}

	up, err := s.upload(ctx, *in.Poster)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.discard(ctx, up.ID)
		return nil, fmt.Errorf("generate movie id: %w", err)
	}
	now := s.timestamp()
	m := &model.Movie{
		ID:             id.String(),
		Title:          title,
		PublishingYear: in.PublishingYear,
		PosterURL:      &up.URL,
		PosterKey:      &up.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.movies.Create(ctx, m); err != nil {
		s.discard(ctx, up.ID)
		return nil, err
	}
	s.publish(ctx, queue.MovieCreated, m)
	return m, nil
}

// ListMovies returns one page.  A page past the end is empty, not an error.
func (s *CatalogService) ListMovies(ctx context.Context, q ListQuery) (MoviePage, error) {
	p := pagination.New(q.Page, q.Limit)
	movies, total, err := s.movies.List(ctx, repository.MovieQuery{
		Search: strings.TrimSpace(q.Search),
		Limit:  p.Limit,
		Offset: p.Offset(),
	})
	if err != nil {
		return MoviePage{}, err
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return MoviePage{Data: movies, Meta: pagination.NewMeta(p, total)}, nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id string) (*model.Movie, error) {
	m, err := s.movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgMovieNotFound, nil)
		}
		return nil, err
	}
	return m, nil
}

// UpdateMovie overwrites only the supplied fields.  A new poster replaces
// the old one: the stored object is destroyed first, then the new image is
// uploaded.
func (s *CatalogService) UpdateMovie(ctx context.Context, id string, in UpdateMovieInput) (*model.Movie, error) {
	m, err := s.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := repository.MoviePatch{PublishingYear: in.PublishingYear}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, newError(ErrInvalidArgument, "title must not be empty", nil)
		}
		if utf8.RuneCountInString(title) > MaxTitleLength {
			return nil, newError(ErrInvalidArgument, msgTitleTooLong, nil)
		}
		patch.Title = &title
	}
	if in.Poster != nil && len(in.Poster.Data) == 0 {
		return nil, newError(ErrInvalidArgument, "poster image is empty", nil)
	}
	if patch.Empty() && in.Poster == nil {
		return m, nil
	}

	var uploaded string
	if in.Poster != nil {
		if key := s.posterKey(m); key != "" {
			if err := s.media.Destroy(ctx, key); err != nil {
				return nil, newError(ErrUpstreamUnavailable, "failed to remove previous poster", err)
			}
		}
		up, err := s.upload(ctx, *in.Poster)
		if err != nil {
			return nil, err
		}
		uploaded = up.ID
		patch.PosterURL, patch.PosterKey = &up.URL, &up.ID
	}

	patch.UpdatedAt = s.timestamp()
	if err := s.movies.Update(ctx, id, patch); err != nil {
		s.discard(ctx, uploaded)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, msgMovieNotFound, nil)
		}
		return nil, err
	}

	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.PublishingYear != nil {
		m.PublishingYear = *patch.PublishingYear
	}
	if patch.PosterURL != nil {
		m.PosterURL, m.PosterKey = patch.PosterURL, patch.PosterKey
	}
	m.UpdatedAt = patch.UpdatedAt
	s.publish(ctx, queue.MovieUpdated, m)
	return m, nil
}

// DeleteMovie destroys the poster and removes the record.  It returns the
// confirmation message shown to clients.
func (s *CatalogService) DeleteMovie(ctx context.Context, id string) (string, error) {
	m, err := s.GetMovie(ctx, id)
	if err != nil {
		return "", err
	}
	if key := s.posterKey(m); key != "" {
		if err := s.media.Destroy(ctx, key); err != nil {
			if s.cfg.StrictDelete {
				return "", newError(ErrUpstreamUnavailable, "failed to remove poster", err)
			}
			s.log.Warn("poster destroy failed; deleting record anyway",
				zap.String("movie_id", id), zap.String("poster_key", key), zap.Error(err))
		}
	}
	if err := s.movies.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", newError(ErrNotFound, msgMovieNotFound, nil)
		}
		return "", err
	}
	s.publish(ctx, queue.MovieDeleted, m)
	return msgMovieDeleted, nil
}

func (s *CatalogService) upload(ctx context.Context, u media.Upload) (media.UploadResult, error) {
	res, err := s.media.Upload(ctx, u)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return media.UploadResult{}, newError(ErrInvalidArgument, "poster is not a valid image", err)
		}
		return media.UploadResult{}, newError(ErrUpstreamUnavailable, "failed to upload poster", err)
	}
	return res, nil
}

// discard removes an uploaded object whose record could not be written.
func (s *CatalogService) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.media.Destroy(ctx, key); err != nil {
		s.log.Warn("orphaned poster left at media host", zap.String("poster_key", key), zap.Error(err))
	}
}

func (s *CatalogService) posterKey(m *model.Movie) string {
	if m.PosterKey != nil && *m.PosterKey != "" {
		return *m.PosterKey
	}
	if m.PosterURL != nil && *m.PosterURL != "" {
		return media.LegacyKey(s.cfg.MediaFolder, *m.PosterURL)
	}
	return ""
}

func (s *CatalogService) publish(ctx context.Context, typ string, m *model.Movie) {
	ev := queue.MovieEvent{
		Type:           typ,
		MovieID:        m.ID,
		Title:          m.Title,
		PublishingYear: m.PublishingYear,
		OccurredAt:     s.now().UTC(),
	}
	if m.PosterURL != nil {
		ev.PosterURL = *m.PosterURL
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("catalog event not published", zap.String("type", typ), zap.String("movie_id", m.ID), zap.Error(err))
	}
}

// timestamp is truncated to microseconds to match DATETIME(6).
func (s *CatalogService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
