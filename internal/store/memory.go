package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fareroute/internal/fare"
	"fareroute/internal/models"
)

// MemoryStore is an in-process RouteStore and UserStore. Routes are cloned
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	routes    map[uint]fare.Route
	users     map[uint]models.User
	nextRoute uint
	nextUser  uint
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes: make(map[uint]fare.Route),
		users:  make(map[uint]models.User),
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, r *fare.Route) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRoute++
	r.ID = s.nextRoute
	r.Version = 1
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.routes[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uint) (fare.Route, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return fare.Route{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, r *fare.Route) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.routes[r.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != r.Version {
		return &ConflictError{RouteID: r.ID, Version: r.Version}
	}
	r.Version++
	r.CreatedAt = current.CreatedAt
	r.UpdatedAt = s.now()
	s.routes[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID uint) ([]fare.Route, error) {
	return s.list(func(r fare.Route) bool { return r.OwnerID == ownerID }), nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]fare.Route, error) {
	return s.list(func(fare.Route) bool { return true }), nil
}

func (s *MemoryStore) list(keep func(fare.Route) bool) []fare.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []fare.Route{}
	for _, r := range s.routes {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) Delete(ctx context.Context, id uint) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[id]; !ok {
		return ErrNotFound
	}
	delete(s.routes, id)
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id uint) (models.User, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}
