package application

import (
	"context"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

// DefaultNearbyRadiusMeters bounds the proximity search when the caller does
// not supply a radius.
const DefaultNearbyRadiusMeters = 50000.0

// DonationService is the donation lifecycle engine and proximity matcher.
// Every status change goes through a compare-and-swap repository update; on
// a lost race the engine re-reads and retries exactly once before surfacing
// a typed failure.
type DonationService struct {
	Donations repository.DonationRepository
	Users     repository.UserRepository
	Events    EventPublisher
	Logger    *logrus.Logger
	ES        *elasticsearch.Client
	ESIndex   string
	GCS       *storage.Client
	GCSBucket string

	// NearbyMaxMeters overrides the default search radius when positive.
	NearbyMaxMeters float64
}

func NewDonationService(donations repository.DonationRepository, users repository.UserRepository, events EventPublisher, logger *logrus.Logger) *DonationService {
	return &DonationService{
		Donations: donations,
		Users:     users,
		Events:    events,
		Logger:    logger,
	}
}

// CreateDonationInput carries the donor-editable donation fields.
type CreateDonationInput struct {
	FoodItems []entity.FoodItem
	Serves    int
	PickupBy  time.Time
	Location  entity.GeoPoint
}

func (in *CreateDonationInput) validate(now time.Time) error {
	if err := entity.ValidateFoodItems(in.FoodItems); err != nil {
		return err
	}
	if err := entity.ValidateServes(in.Serves); err != nil {
		return err
	}
	if err := entity.ValidatePickupBy(in.PickupBy, now); err != nil {
		return err
	}
	return entity.ValidatePoint(in.Location)
}

// CreateDonation validates the listing, checks the donor, and inserts a new
// Available donation with no volunteer.
func (s *DonationService) CreateDonation(ctx context.Context, donorID string, in CreateDonationInput) (*entity.Donation, error) {
	if err := in.validate(time.Now()); err != nil {
		return nil, err
	}
	donor, err := s.Users.GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor.Role != entity.RoleDonor {
		return nil, apperrors.New(apperrors.CodeForbidden, "only donors can create donations")
	}

	d := &entity.Donation{
		DonorID:   donorID,
		FoodItems: in.FoodItems,
		Serves:    in.Serves,
		PickupBy:  in.PickupBy,
		Status:    entity.StatusAvailable,
		Location:  in.Location,
	}
	if err := s.Donations.Insert(ctx, d); err != nil {
		return nil, err
	}
	s.publish(ctx, EventDonationCreated, d)
	s.indexDonation(ctx, d)
	return d, nil
}

// EditDonation replaces the donor-editable fields while the donation is
// still Available. Only the owning donor may edit.
func (s *DonationService) EditDonation(ctx context.Context, donationID, actorID string, in CreateDonationInput) (*entity.Donation, error) {
	if err := in.validate(time.Now()); err != nil {
		return nil, err
	}
	available := entity.StatusAvailable
	d, err := s.transition(ctx, donationID, func(d *entity.Donation) (repository.Predicate, repository.Patch, error) {
		if d.DonorID != actorID {
			return repository.Predicate{}, repository.Patch{}, apperrors.New(apperrors.CodeForbidden, "only the owning donor can edit")
		}
		if d.Status != entity.StatusAvailable {
			return repository.Predicate{}, repository.Patch{}, apperrors.New(apperrors.CodeInvalidState, "donation can no longer be edited")
		}
		return repository.Predicate{Status: &available},
			repository.Patch{
				FoodItems: in.FoodItems,
				Serves:    &in.Serves,
				PickupBy:  &in.PickupBy,
				Location:  &in.Location,
			}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventDonationEdited, d)
	s.indexDonation(ctx, d)
	return d, nil
}

// AcceptDonation assigns an Available donation to a volunteer. Under
// concurrent accepts the conditional write lets exactly one caller win; the
// others observe an invalid-state failure.
func (s *DonationService) AcceptDonation(ctx context.Context, donationID, volunteerID string) (*entity.Donation, error) {
	volunteer, err := s.Users.GetByID(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer.Role != entity.RoleVolunteer {
		return nil, apperrors.New(apperrors.CodeForbidden, "only volunteers can accept pickups")
	}

	available := entity.StatusAvailable
	accepted := entity.StatusPickupAccepted
	d, err := s.transition(ctx, donationID, func(d *entity.Donation) (repository.Predicate, repository.Patch, error) {
		if d.Status != entity.StatusAvailable {
			return repository.Predicate{}, repository.Patch{}, apperrors.New(apperrors.CodeInvalidState, "donation is no longer available")
		}
		return repository.Predicate{Status: &available},
			repository.Patch{Status: &accepted, VolunteerID: &volunteerID}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventPickupAccepted, d)
	return d, nil
}

// RejectDonation releases a pickup back to Available. Only the currently
// assigned volunteer may reject, whatever the current status.
func (s *DonationService) RejectDonation(ctx context.Context, donationID, actorID string) (*entity.Donation, error) {
	available := entity.StatusAvailable
	d, err := s.transition(ctx, donationID, func(d *entity.Donation) (repository.Predicate, repository.Patch, error) {
		if !d.AssignedTo(actorID) {
			return repository.Predicate{}, repository.Patch{}, apperrors.New(apperrors.CodeForbidden, "not the assigned volunteer")
		}
		return repository.Predicate{VolunteerID: &actorID},
			repository.Patch{Status: &available, ClearVolunteer: true}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventPickupRejected, d)
	return d, nil
}

// CompleteDonation marks an assigned pickup as done. Completed is terminal.
func (s *DonationService) CompleteDonation(ctx context.Context, donationID, actorID string) (*entity.Donation, error) {
	completed := entity.StatusCompleted
	d, err := s.transition(ctx, donationID, func(d *entity.Donation) (repository.Predicate, repository.Patch, error) {
		if !d.AssignedTo(actorID) {
			return repository.Predicate{}, repository.Patch{}, apperrors.New(apperrors.CodeForbidden, "not the assigned volunteer")
		}
		return repository.Predicate{VolunteerID: &actorID},
			repository.Patch{Status: &completed}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventPickupCompleted, d)
	return d, nil
}

// transition runs one read-check-swap cycle, retrying a single time when the
// swap loses a race. The second loss is reported as invalid state: by then
// another writer has moved the donation and check() has re-confirmed against
// a stale read twice.
func (s *DonationService) transition(ctx context.Context, donationID string, check func(*entity.Donation) (repository.Predicate, repository.Patch, error)) (*entity.Donation, error) {
	for attempt := 0; ; attempt++ {
		d, err := s.Donations.GetByID(ctx, donationID)
		if err != nil {
			return nil, err
		}
		pred, patch, err := check(d)
		if err != nil {
			return nil, err
		}
		updated, err := s.Donations.Update(ctx, donationID, pred, patch)
		if err == nil {
			return updated, nil
		}
		if !apperrors.Is(err, apperrors.CodePreconditionFailed) {
			return nil, err
		}
		if attempt >= 1 {
			return nil, apperrors.New(apperrors.CodeInvalidState, "donation changed concurrently")
		}
	}
}

// GetDonation is a point lookup.
func (s *DonationService) GetDonation(ctx context.Context, donationID string) (*entity.Donation, error) {
	return s.Donations.GetByID(ctx, donationID)
}

// NearbyDonation is one proximity match: the donation, its redacted donor,
// and the great-circle distance from the query origin.
type NearbyDonation struct {
	Donation       entity.Donation    `json:"donation"`
	Donor          entity.UserSummary `json:"donor"`
	DistanceMeters float64            `json:"distance_meters"`
}

// FindNearby runs the matching pipeline: spatial range query, status and
// capacity filter, donor join, secret redaction. Results stay ordered by
// ascending distance with id as the tiebreak. A donation whose donor cannot
// be resolved is dropped silently.
func (s *DonationService) FindNearby(ctx context.Context, origin entity.GeoPoint, minServes int, maxMeters float64) ([]NearbyDonation, error) {
	if err := entity.ValidatePoint(origin); err != nil {
		return nil, err
	}
	if minServes < 0 {
		minServes = 0
	}
	if maxMeters <= 0 {
		if s.NearbyMaxMeters > 0 {
			maxMeters = s.NearbyMaxMeters
		} else {
			maxMeters = DefaultNearbyRadiusMeters
		}
	}

	near, err := s.Donations.QueryNear(ctx, origin, maxMeters)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyDonation, 0, len(near))
	for _, n := range near {
		if !n.Donation.Open() || n.Donation.Serves < minServes {
			continue
		}
		donor, err := s.Users.GetByID(ctx, n.Donation.DonorID)
		if err != nil {
			if apperrors.Is(err, apperrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, NearbyDonation{
			Donation:       n.Donation,
			Donor:          donor.Summary(),
			DistanceMeters: n.Meters,
		})
	}
	return out, nil
}

// DonationWithVolunteer decorates a donor's listing with the assigned
// volunteer's redacted identity, when there is one.
type DonationWithVolunteer struct {
	Donation  entity.Donation     `json:"donation"`
	Volunteer *entity.UserSummary `json:"volunteer,omitempty"`
}

// ListByDonor returns a donor's own listings, volunteer attached.
func (s *DonationService) ListByDonor(ctx context.Context, donorID string) ([]DonationWithVolunteer, error) {
	ds, err := s.Donations.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	out := make([]DonationWithVolunteer, 0, len(ds))
	for _, d := range ds {
		item := DonationWithVolunteer{Donation: d}
		if d.VolunteerID != nil {
			if v, err := s.Users.GetByID(ctx, *d.VolunteerID); err == nil {
				sum := v.Summary()
				item.Volunteer = &sum
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// DonationWithDonor decorates a volunteer's pickup with the donor's
// redacted identity.
type DonationWithDonor struct {
	Donation entity.Donation     `json:"donation"`
	Donor    *entity.UserSummary `json:"donor,omitempty"`
}

// ListByVolunteer returns the pickups assigned to a volunteer, donor
// attached.
func (s *DonationService) ListByVolunteer(ctx context.Context, volunteerID string) ([]DonationWithDonor, error) {
	ds, err := s.Donations.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	out := make([]DonationWithDonor, 0, len(ds))
	for _, d := range ds {
		item := DonationWithDonor{Donation: d}
		if donor, err := s.Users.GetByID(ctx, d.DonorID); err == nil {
			sum := donor.Summary()
			item.Donor = &sum
		}
		out = append(out, item)
	}
	return out, nil
}
