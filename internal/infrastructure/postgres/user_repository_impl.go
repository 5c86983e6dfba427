package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, full_name, phone_number, password_hash, role,
	ST_X(location::geometry), ST_Y(location::geometry),
	created_at, updated_at
`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (full_name, phone_number, password_hash, role, location)
		VALUES ($1, $2, $3, $4, `+pointExpr("$5", "$6")+`)
		RETURNING id, created_at, updated_at
	`, u.FullName, u.PhoneNumber, u.PasswordHash, u.Role, lngArg(u.Location), latArg(u.Location))

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.New(apperrors.CodeConflict, "phone number already registered")
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return r.getBy(ctx, "phone_number = $1", phone)
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) UpdateLocation(ctx context.Context, id string, loc entity.GeoPoint) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET location = `+pointExpr("$2", "$3")+`, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, loc.Longitude, loc.Latitude)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var lng, lat *float64
	if err := row.Scan(&u.ID, &u.FullName, &u.PhoneNumber, &u.PasswordHash, &u.Role,
		&lng, &lat, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if lng != nil && lat != nil {
		u.Location = &entity.GeoPoint{Longitude: *lng, Latitude: *lat}
	}
	return u, nil
}

// pointExpr renders a geography point from longitude/latitude placeholders,
// NULL when the longitude placeholder is NULL.
func pointExpr(lngPh, latPh string) string {
	return `CASE WHEN ` + lngPh + `::float8 IS NULL THEN NULL
		ELSE ST_SetSRID(ST_MakePoint(` + lngPh + `::float8, ` + latPh + `::float8), 4326)::geography END`
}

func lngArg(p *entity.GeoPoint) *float64 {
	if p == nil {
		return nil
	}
	return &p.Longitude
}

func latArg(p *entity.GeoPoint) *float64 {
	if p == nil {
		return nil
	}
	return &p.Latitude
}

var _ repository.UserRepository = (*UserRepository)(nil)
