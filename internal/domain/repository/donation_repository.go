package repository

import (
	"context"
	"time"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
)

// Predicate is the compare part of a compare-and-swap donation update. Nil
// fields are not checked. A predicate that no longer holds makes Update fail
// with apperrors.CodePreconditionFailed instead of overwriting a concurrent
// writer's result.
type Predicate struct {
	Status *entity.DonationStatus
	// VolunteerID matches the currently assigned volunteer.
	VolunteerID *string
}

// Patch is the swap part. Nil fields are left untouched. ClearVolunteer sets
// volunteer_id to NULL and wins over VolunteerID.
type Patch struct {
	FoodItems      []entity.FoodItem
	Serves         *int
	PickupBy       *time.Time
	Location       *entity.GeoPoint
	ImageURL       *string
	Status         *entity.DonationStatus
	VolunteerID    *string
	ClearVolunteer bool
}

// Nearby pairs a donation with its great-circle distance from a query origin.
type Nearby struct {
	Donation entity.Donation
	Meters   float64
}

// DonationRepository is the donation store. The store assigns IDs and
// maintains created_at/updated_at on every mutation.
type DonationRepository interface {
	Insert(ctx context.Context, d *entity.Donation) error
	GetByID(ctx context.Context, id string) (*entity.Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]entity.Donation, error)
	ListByVolunteer(ctx context.Context, volunteerID string) ([]entity.Donation, error)
	// Update applies patch only while pred still holds, atomically.
	// Fails with CodeNotFound if the donation does not exist and
	// CodePreconditionFailed if it exists but pred no longer matches.
	Update(ctx context.Context, id string, pred Predicate, patch Patch) (*entity.Donation, error)
	// QueryNear returns every donation within maxMeters of origin, nearest
	// first, ties broken by id ascending. Status filtering is the caller's
	// concern; the store only answers the spatial range query.
	QueryNear(ctx context.Context, origin entity.GeoPoint, maxMeters float64) ([]Nearby, error)
}
