package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
	"github.com/annadaan/annadaan-backend/pkg/helpers"
)

// DonationRepository is the in-memory donation store. Update holds the
// write lock across the predicate check and the mutation, so it gives the
// same at-most-one-winner guarantee as the conditional UPDATE in Postgres.
type DonationRepository struct {
	mu        sync.RWMutex
	seq       int
	donations map[string]*entity.Donation
}

func NewDonationRepository() *DonationRepository {
	return &DonationRepository{donations: make(map[string]*entity.Donation)}
}

func (r *DonationRepository) Insert(_ context.Context, d *entity.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	// Zero-padded so lexicographic id order matches insertion order.
	d.ID = fmt.Sprintf("d-%06d", r.seq)
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	r.donations[d.ID] = clone(d)
	return nil
}

func (r *DonationRepository) GetByID(_ context.Context, id string) (*entity.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.donations[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "donation not found")
	}
	return clone(d), nil
}

func (r *DonationRepository) ListByDonor(_ context.Context, donorID string) ([]entity.Donation, error) {
	return r.filter(func(d *entity.Donation) bool { return d.DonorID == donorID }), nil
}

func (r *DonationRepository) ListByVolunteer(_ context.Context, volunteerID string) ([]entity.Donation, error) {
	return r.filter(func(d *entity.Donation) bool { return d.AssignedTo(volunteerID) }), nil
}

func (r *DonationRepository) filter(keep func(*entity.Donation) bool) []entity.Donation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Donation
	for _, d := range r.donations {
		if keep(d) {
			out = append(out, *clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *DonationRepository) Update(_ context.Context, id string, pred repository.Predicate, patch repository.Patch) (*entity.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.donations[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "donation not found")
	}
	if pred.Status != nil && d.Status != *pred.Status {
		return nil, apperrors.New(apperrors.CodePreconditionFailed, "donation changed concurrently")
	}
	if pred.VolunteerID != nil && !d.AssignedTo(*pred.VolunteerID) {
		return nil, apperrors.New(apperrors.CodePreconditionFailed, "donation changed concurrently")
	}

	if patch.FoodItems != nil {
		d.FoodItems = append([]entity.FoodItem(nil), patch.FoodItems...)
	}
	if patch.Serves != nil {
		d.Serves = *patch.Serves
	}
	if patch.PickupBy != nil {
		d.PickupBy = *patch.PickupBy
	}
	if patch.Location != nil {
		d.Location = *patch.Location
	}
	if patch.ImageURL != nil {
		d.ImageURL = *patch.ImageURL
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if patch.ClearVolunteer {
		d.VolunteerID = nil
	} else if patch.VolunteerID != nil {
		v := *patch.VolunteerID
		d.VolunteerID = &v
	}
	d.UpdatedAt = time.Now()
	return clone(d), nil
}

func (r *DonationRepository) QueryNear(_ context.Context, origin entity.GeoPoint, maxMeters float64) ([]repository.Nearby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []repository.Nearby
	for _, d := range r.donations {
		m := helpers.HaversineMeters(origin.Longitude, origin.Latitude, d.Location.Longitude, d.Location.Latitude)
		if m <= maxMeters {
			out = append(out, repository.Nearby{Donation: *clone(d), Meters: m})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Meters != out[j].Meters {
			return out[i].Meters < out[j].Meters
		}
		return out[i].Donation.ID < out[j].Donation.ID
	})
	return out, nil
}

func clone(d *entity.Donation) *entity.Donation {
	cp := *d
	cp.FoodItems = append([]entity.FoodItem(nil), d.FoodItems...)
	if d.VolunteerID != nil {
		v := *d.VolunteerID
		cp.VolunteerID = &v
	}
	return &cp
}

var _ repository.DonationRepository = (*DonationRepository)(nil)
