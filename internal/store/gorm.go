package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"fareroute/internal/fare"
	"fareroute/internal/models"
)

// GormStore implements RouteStore and UserStore on a gorm database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, r *fare.Route) error {
	rec := models.RouteFromFare(*r)
	rec.ID = 0
	rec.Version = 1
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	r.ID = rec.ID
	r.Version = rec.Version
	r.CreatedAt = rec.CreatedAt
	r.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (fare.Route, error) {
	var rec models.Route
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fare.Route{}, ErrNotFound
		}
		return fare.Route{}, err
	}
	return rec.ToFare()
}

func (s *GormStore) Put(ctx context.Context, r *fare.Route) error {
	rec := models.RouteFromFare(*r)
	rec.Version = r.Version + 1

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The conditional bump locks the row; zero rows means someone else
		// wrote first or the route is gone.
		res := tx.Model(&models.Route{}).
			Where("id = ? AND version = ?", r.ID, r.Version).
			Update("version", rec.Version)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Route{}).Where("id = ?", r.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return &ConflictError{RouteID: r.ID, Version: r.Version}
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return err
	}
	r.Version = rec.Version
	r.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID uint) ([]fare.Route, error) {
	return s.list(s.db.WithContext(ctx).Where("user_id = ?", ownerID))
}

func (s *GormStore) ListAll(ctx context.Context) ([]fare.Route, error) {
	return s.list(s.db.WithContext(ctx))
}

func (s *GormStore) list(q *gorm.DB) ([]fare.Route, error) {
	var recs []models.Route
	if err := q.Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]fare.Route, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.ToFare()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Route{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("email = ?", email))
}

func (s *GormStore) FindUserByID(ctx context.Context, id uint) (models.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) findUser(q *gorm.DB) (models.User, error) {
	var u models.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}
