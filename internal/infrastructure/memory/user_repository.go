package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

// UserRepository is an in-memory identity store with the same error
// contract as the Postgres implementation. Used by unit tests and local
// development without a database.
type UserRepository struct {
	mu      sync.RWMutex
	seq     int
	users   map[string]*entity.User
	byPhone map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*entity.User),
		byPhone: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byPhone[u.PhoneNumber]; taken {
		return apperrors.New(apperrors.CodeConflict, "phone number already registered")
	}
	r.seq++
	u.ID = "u-" + strconv.Itoa(r.seq)
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	r.users[u.ID] = &cp
	r.byPhone[u.PhoneNumber] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByPhone(_ context.Context, phone string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *UserRepository) UpdateLocation(_ context.Context, id string, loc entity.GeoPoint) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	u.Location = &entity.GeoPoint{Longitude: loc.Longitude, Latitude: loc.Latitude}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

// Delete removes a user; only tests exercising unresolvable-donor handling
// need it, so it is not part of the repository interface.
func (r *UserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		delete(r.byPhone, u.PhoneNumber)
		delete(r.users, id)
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)
