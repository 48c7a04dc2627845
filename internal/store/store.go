// Package store persists fare routes and operator accounts. Writes of an
// existing route are compare-and-swap on its version.
package store

import (
	"context"
	"errors"
	"fmt"

	"fareroute/internal/fare"
	"fareroute/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrConflict       = errors.New("route was modified by another request")
	ErrDuplicateEmail = errors.New("email already in use")
)

// ConflictError reports a stale write: the route no longer has the version
// the caller read.
type ConflictError struct {
	RouteID uint
	Version int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("route %d: version %d is stale: %v", e.RouteID, e.Version, ErrConflict)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// RouteStore is the keyed record store used by the route workflow.
type RouteStore interface {
	// Create assigns an id and version 1.
	Create(ctx context.Context, r *fare.Route) error
	Get(ctx context.Context, id uint) (fare.Route, error)
	// Put replaces the route if its stored version still equals r.Version,
	// then bumps r.Version. Otherwise it returns a *ConflictError.
	Put(ctx context.Context, r *fare.Route) error
	ListByOwner(ctx context.Context, ownerID uint) ([]fare.Route, error)
	ListAll(ctx context.Context) ([]fare.Route, error)
	Delete(ctx context.Context, id uint) error
}

// UserStore holds operator accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id uint) (models.User, error)
}

var (
	_ RouteStore = (*GormStore)(nil)
	_ UserStore  = (*GormStore)(nil)
	_ RouteStore = (*MemoryStore)(nil)
	_ UserStore  = (*MemoryStore)(nil)
)
