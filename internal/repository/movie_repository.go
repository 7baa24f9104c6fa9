package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieQuery holds search and pagination for listing movies.  Search is a
// case-insensitive substring of the title; empty means no filter.
type MovieQuery struct {
	Search string
	Limit  int
	Offset int
}

// MoviePatch lists the columns to overwrite.  Nil fields are left
// untouched; UpdatedAt is always written.
type MoviePatch struct {
	Title          *string
	PublishingYear *int
	PosterURL      *string
	PosterKey      *string
	UpdatedAt      time.Time
}

// Empty reports whether the patch changes no catalog field.
func (p MoviePatch) Empty() bool {
	return p.Title == nil && p.PublishingYear == nil && p.PosterURL == nil && p.PosterKey == nil
}

// MovieRepo is the movie catalog store backed by the `movies` table.
type MovieRepo struct{ db *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = "id, title, publishing_year, poster_url, poster_key, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanMovie(s rowScanner) (*model.Movie, error) {
	var (
		m        model.Movie
		url, key sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Title, &m.PublishingYear, &url, &key, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if url.Valid {
		m.PosterURL = &url.String
	}
	if key.Valid {
		m.PosterKey = &key.String
	}
	return &m, nil
}

// Create inserts m.  The caller supplies id and timestamps.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO movies ("+movieColumns+") VALUES (?,?,?,?,?,?,?)",
		m.ID, m.Title, m.PublishingYear, m.PosterURL, m.PosterKey, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	return nil
}

// GetByID fetches one movie.  It returns ErrNotFound if no row matches.
func (r *MovieRepo) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select movie: %w", err)
	}
	return m, nil
}

// List returns one page of movies, newest first, and the total number of
// movies matching the filter.
func (r *MovieRepo) List(ctx context.Context, q MovieQuery) ([]model.Movie, int, error) {
	cond := "1=1"
	var args []any
	if s := strings.TrimSpace(q.Search); s != "" {
		cond = "LOWER(title) LIKE ?"
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	out := make([]model.Movie, 0, q.Limit)
	if total == 0 || q.Offset >= total {
		return out, total, nil
	}

	dataArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE "+cond+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	return out, total, nil
}

// Update writes the non-nil fields of p.  It returns ErrNotFound when no
// row matches id.
func (r *MovieRepo) Update(ctx context.Context, id string, p MoviePatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{p.UpdatedAt}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.PublishingYear != nil {
		sets = append(sets, "publishing_year = ?")
		args = append(args, *p.PublishingYear)
	}
	if p.PosterURL != nil {
		sets = append(sets, "poster_url = ?")
		args = append(args, *p.PosterURL)
	}
	if p.PosterKey != nil {
		sets = append(sets, "poster_key = ?")
		args = append(args, *p.PosterKey)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE movies SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the movie row.  It returns ErrNotFound when no row
// matches id.
func (r *MovieRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes the LIKE wildcards so the search term matches
// literally.  MySQL's default escape character is the backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
