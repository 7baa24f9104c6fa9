package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/model"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

func TestUserRepo_Create(t *testing.T) {
	repo, mock := newUserRepo(t)
	now := time.Now().UTC()
	u := &model.User{ID: "u1", Email: "neo@example.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (" + userColumns + ")")).
		WithArgs("u1", "neo@example.com", "hash", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.User{ID: "u1", Email: "neo@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	now := time.Now().UTC()
	cols := []string{"id", "email", "password_hash", "refresh_token_hash", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("neo@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "neo@example.com", "hash", nil, now, now))

	u, err := repo.GetByEmail(context.Background(), "neo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Nil(t, u.RefreshTokenHash)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "neo@example.com", "hash", "abc", now, now))

	u, err = repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, u.RefreshTokenHash)
	assert.Equal(t, "abc", *u.RefreshTokenHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery("FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_SetRefreshTokenHash(t *testing.T) {
	repo, mock := newUserRepo(t)
	hash := "digest"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token_hash=?")).
		WithArgs("digest", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetRefreshTokenHash(context.Background(), "u1", &hash))

	mock.ExpectExec("UPDATE users SET refresh_token_hash").
		WithArgs(nil, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetRefreshTokenHash(context.Background(), "missing", nil), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
