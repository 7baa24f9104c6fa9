// Package servicetest provides in-memory stores, a media host and an event
// sink for exercising the services without MySQL, S3 or RabbitMQ.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/movie-catalog/internal/media"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

// Users is an in-memory credential store.
type Users struct {
	mu   sync.Mutex
	byID map[string]*model.User
	// Err, when set, is returned by every call.
	Err error
}

func NewUsers() *Users { return &Users{byID: map[string]*model.User{}} }

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Users) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Users) SetRefreshTokenHash(_ context.Context, id string, hash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if hash == nil {
		u.RefreshTokenHash = nil
		return nil
	}
	h := *hash
	u.RefreshTokenHash = &h
	return nil
}

// Movies is an in-memory catalog store with the same ordering and search
// rules as the MySQL one.
type Movies struct {
	mu   sync.Mutex
	byID map[string]model.Movie
	// Err, when set, is returned by every call.
	Err error
}

func NewMovies() *Movies { return &Movies{byID: map[string]model.Movie{}} }

// Len returns the number of stored movies.
func (s *Movies) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Put stores m as is, for seeding records such as legacy rows.
func (s *Movies) Put(m model.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[m.ID] = m
}

func (s *Movies) Create(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, dup := s.byID[m.ID]; dup {
		return fmt.Errorf("duplicate movie id %s", m.ID)
	}
	s.byID[m.ID] = *m
	return nil
}

func (s *Movies) GetByID(_ context.Context, id string) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	m, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *Movies) List(_ context.Context, q repository.MovieQuery) ([]model.Movie, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	var all []model.Movie
	for _, m := range s.byID {
		if needle == "" || strings.Contains(strings.ToLower(m.Title), needle) {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	out := []model.Movie{}
	if q.Offset >= total {
		return out, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return append(out, all[q.Offset:end]...), total, nil
}

func (s *Movies) Update(_ context.Context, id string, p repository.MoviePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	m, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.PublishingYear != nil {
		m.PublishingYear = *p.PublishingYear
	}
	if p.PosterURL != nil {
		m.PosterURL = p.PosterURL
	}
	if p.PosterKey != nil {
		m.PosterKey = p.PosterKey
	}
	m.UpdatedAt = p.UpdatedAt
	s.byID[id] = m
	return nil
}

func (s *Movies) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// Media is an in-memory media host.  Calls records "upload:<key>" and
// "destroy:<key>" in order.
type Media struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	Calls   []string
	// UploadErr and DestroyErr, when set, fail the respective calls.
	UploadErr  error
	DestroyErr error
}

func NewMedia() *Media { return &Media{objects: map[string][]byte{}} }

// BaseURL prefixes every returned poster URL.
const BaseURL = "https://media.test"

func (h *Media) Upload(_ context.Context, u media.Upload) (media.UploadResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.UploadErr != nil {
		return media.UploadResult{}, h.UploadErr
	}
	h.seq++
	key := fmt.Sprintf("movies/poster-%03d.jpg", h.seq)
	h.objects[key] = append([]byte(nil), u.Data...)
	h.Calls = append(h.Calls, "upload:"+key)
	return media.UploadResult{URL: BaseURL + "/" + key, ID: key}, nil
}

func (h *Media) Destroy(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.DestroyErr != nil {
		return h.DestroyErr
	}
	h.Calls = append(h.Calls, "destroy:"+id)
	delete(h.objects, id)
	return nil
}

// Has reports whether an object with the key is stored.
func (h *Media) Has(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (h *Media) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objects)
}

// Events records published catalog events.
type Events struct {
	mu     sync.Mutex
	events []queue.MovieEvent
	// Err, when set, is returned by Publish after recording the event.
	Err error
}

func (e *Events) Publish(_ context.Context, ev queue.MovieEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.Err
}

// Types returns the types of the recorded events in order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}
