package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
	"github.com/annadaan/annadaan-backend/pkg/helpers"
)

const sessionTTL = 24 * time.Hour

// UserService handles registration, login, and the one mutable identity
// field (location). Credential checks live here; the donation services only
// ever read users.
type UserService struct {
	Repo   repository.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
}

func NewUserService(repo repository.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *UserService {
	return &UserService{Repo: repo, JWT: jwt, Redis: rdb, Logger: logger}
}

// TokenPair is the issued access/refresh token set.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// RegisterInput carries the immutable identity fields.
type RegisterInput struct {
	FullName    string
	PhoneNumber string
	Password    string
	Role        entity.Role
}

// Register creates a user and logs them in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, TokenPair, error) {
	if !in.Role.Valid() {
		return nil, TokenPair{}, apperrors.Validation("invalid role", map[string]string{"role": "must be donor or volunteer"})
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	u := &entity.User{
		FullName:     in.FullName,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Login validates phone/password and issues a token pair.
func (s *UserService) Login(ctx context.Context, phone, password string) (*entity.User, TokenPair, error) {
	u, err := s.Repo.GetByPhone(ctx, phone)
	if err != nil || !helpers.CheckPassword(u.PasswordHash, password) {
		return nil, TokenPair{}, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// IssueTokens generates the token pair and records the session in Redis.
func (s *UserService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, string(u.Role), sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, string(u.Role), sid)
	if err != nil {
		return TokenPair{}, err
	}

	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":   u.ID,
			"full_name": u.FullName,
			"phone":     u.PhoneNumber,
			"role":      string(u.Role),
			"sid":       sid,
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, err := pipe.Exec(ctx); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh rotates the session id and token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, apperrors.New(apperrors.CodeUnauthorized, "invalid refresh token")
	}
	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, apperrors.New(apperrors.CodeUnauthorized, "invalid refresh token")
	}
	if s.Redis != nil {
		data, err := s.Redis.HGetAll(ctx, helpers.SessionKey(u.ID)).Result()
		if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, apperrors.New(apperrors.CodeUnauthorized, "session expired")
		}
	}
	return s.IssueTokens(ctx, u)
}

// Logout drops the Redis session.
func (s *UserService) Logout(ctx context.Context, userID string) {
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, helpers.SessionKey(userID)).Err()
	}
}

// GetProfile is a point lookup for the authenticated user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return s.Repo.GetByID(ctx, userID)
}

// UpdateLocation sets a user's coordinates, typically a volunteer marking
// their operating area. Location is the only mutable identity field.
func (s *UserService) UpdateLocation(ctx context.Context, userID string, loc entity.GeoPoint) (*entity.User, error) {
	if err := entity.ValidatePoint(loc); err != nil {
		return nil, err
	}
	return s.Repo.UpdateLocation(ctx, userID, loc)
}
