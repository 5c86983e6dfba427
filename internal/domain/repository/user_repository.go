package repository

import (
	"context"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
)

// UserRepository is the identity store consumed by the donation services.
// Implementations return apperrors.CodeNotFound for missing records and
// apperrors.CodeConflict for phone-number collisions.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)
	// UpdateLocation mutates the one mutable User field.
	UpdateLocation(ctx context.Context, id string, loc entity.GeoPoint) (*entity.User, error)
}
