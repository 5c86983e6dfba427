package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

// DonationRepository persists donations in Postgres. The location column is
// PostGIS geography with a GIST index, which serves QueryNear, and Update is
// a single conditional UPDATE so concurrent lifecycle transitions cannot
// overwrite each other.
type DonationRepository struct {
	pool *pgxpool.Pool
}

func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

const donationColumns = `
	id, donor_id, food_items, serves, pickup_by, status,
	ST_X(location::geometry), ST_Y(location::geometry),
	image_url, volunteer_id, created_at, updated_at
`

func (r *DonationRepository) Insert(ctx context.Context, d *entity.Donation) error {
	items, err := json.Marshal(d.FoodItems)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO donations (donor_id, food_items, serves, pickup_by, status, location)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography)
		RETURNING id, created_at, updated_at
	`, d.DonorID, items, d.Serves, d.PickupBy, d.Status, d.Location.Longitude, d.Location.Latitude)
	return row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *DonationRepository) GetByID(ctx context.Context, id string) (*entity.Donation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.CodeNotFound, "donation not found")
		}
		return nil, err
	}
	return d, nil
}

func (r *DonationRepository) ListByDonor(ctx context.Context, donorID string) ([]entity.Donation, error) {
	return r.list(ctx, `donor_id = $1`, `created_at DESC`, donorID)
}

func (r *DonationRepository) ListByVolunteer(ctx context.Context, volunteerID string) ([]entity.Donation, error) {
	return r.list(ctx, `volunteer_id = $1`, `updated_at DESC`, volunteerID)
}

func (r *DonationRepository) list(ctx context.Context, where, order string, arg any) ([]entity.Donation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+donationColumns+` FROM donations WHERE `+where+` ORDER BY `+order, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update is the compare-and-swap write: the predicate travels in the WHERE
// clause, so a concurrent transition makes the update match zero rows
// instead of clobbering it.
func (r *DonationRepository) Update(ctx context.Context, id string, pred repository.Predicate, patch repository.Patch) (*entity.Donation, error) {
	sets := []string{"updated_at = now()"}
	where := []string{"id = $1"}
	args := []any{id}

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.FoodItems != nil {
		items, err := json.Marshal(patch.FoodItems)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "food_items = "+next(items))
	}
	if patch.Serves != nil {
		sets = append(sets, "serves = "+next(*patch.Serves))
	}
	if patch.PickupBy != nil {
		sets = append(sets, "pickup_by = "+next(*patch.PickupBy))
	}
	if patch.Location != nil {
		lng := next(patch.Location.Longitude)
		lat := next(patch.Location.Latitude)
		sets = append(sets, fmt.Sprintf("location = ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography", lng, lat))
	}
	if patch.ImageURL != nil {
		sets = append(sets, "image_url = "+next(*patch.ImageURL))
	}
	if patch.Status != nil {
		sets = append(sets, "status = "+next(*patch.Status))
	}
	if patch.ClearVolunteer {
		sets = append(sets, "volunteer_id = NULL")
	} else if patch.VolunteerID != nil {
		sets = append(sets, "volunteer_id = "+next(*patch.VolunteerID))
	}

	if pred.Status != nil {
		where = append(where, "status = "+next(*pred.Status))
	}
	if pred.VolunteerID != nil {
		where = append(where, "volunteer_id = "+next(*pred.VolunteerID))
	}

	q := `UPDATE donations SET ` + strings.Join(sets, ", ") +
		` WHERE ` + strings.Join(where, " AND ") +
		` RETURNING ` + donationColumns

	d, err := scanDonation(r.pool.QueryRow(ctx, q, args...))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Zero rows: distinguish a missing donation from a lost race.
	var one int
	if err := r.pool.QueryRow(ctx, `SELECT 1 FROM donations WHERE id = $1`, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.CodeNotFound, "donation not found")
		}
		return nil, err
	}
	return nil, apperrors.New(apperrors.CodePreconditionFailed, "donation changed concurrently")
}

// QueryNear answers the spatial range query through the GIST index. Status
// and capacity filtering stay with the caller.
func (r *DonationRepository) QueryNear(ctx context.Context, origin entity.GeoPoint, maxMeters float64) ([]repository.Nearby, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+donationColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS meters
		FROM donations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY meters ASC, id ASC
	`, origin.Longitude, origin.Latitude, maxMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Nearby
	for rows.Next() {
		var n repository.Nearby
		d, err := scanDonationWith(rows, &n.Meters)
		if err != nil {
			return nil, err
		}
		n.Donation = *d
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanDonation(row pgx.Row) (*entity.Donation, error) {
	return scanDonationWith(row)
}

func scanDonationWith(row pgx.Row, extra ...any) (*entity.Donation, error) {
	d := &entity.Donation{}
	var items []byte
	var imageURL *string
	dest := []any{
		&d.ID, &d.DonorID, &items, &d.Serves, &d.PickupBy, &d.Status,
		&d.Location.Longitude, &d.Location.Latitude,
		&imageURL, &d.VolunteerID, &d.CreatedAt, &d.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &d.FoodItems); err != nil {
		return nil, err
	}
	if imageURL != nil {
		d.ImageURL = *imageURL
	}
	return d, nil
}

var _ repository.DonationRepository = (*DonationRepository)(nil)
