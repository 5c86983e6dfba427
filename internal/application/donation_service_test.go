package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/infrastructure/memory"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []DonationEvent
}

func (p *capturingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := body.(DonationEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc    *DonationService
	users  *memory.UserRepository
	events *capturingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepository()
	events := &capturingPublisher{}
	svc := NewDonationService(memory.NewDonationRepository(), users, events, nil)
	return &fixture{svc: svc, users: users, events: events}
}

func (f *fixture) addUser(t *testing.T, name string, role entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{
		FullName:     name,
		PhoneNumber:  "+91" + name,
		PasswordHash: "$2a$10$secret",
		Role:         role,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func validInput() CreateDonationInput {
	return CreateDonationInput{
		FoodItems: []entity.FoodItem{{Name: "Rice", Quantity: "5 kg"}},
		Serves:    10,
		PickupBy:  time.Now().Add(24 * time.Hour),
		Location:  entity.GeoPoint{Longitude: 77.0, Latitude: 12.9},
	}
}

func TestCreateDonation(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	ctx := context.Background()

	d, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAvailable, d.Status)
	assert.Nil(t, d.VolunteerID)
	assert.Equal(t, donor.ID, d.DonorID)
	assert.NotEmpty(t, d.ID)

	// Round trip: fetching by id returns an equivalent record.
	got, err := f.svc.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.FoodItems, got.FoodItems)
	assert.Equal(t, d.Serves, got.Serves)
	assert.Equal(t, d.Location, got.Location)
	assert.True(t, d.PickupBy.Equal(got.PickupBy))
	assert.Equal(t, d.Status, got.Status)

	assert.Equal(t, []string{EventDonationCreated}, f.events.types())
}

func TestCreateDonationValidation(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	volunteer := f.addUser(t, "vol", entity.RoleVolunteer)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateDonationInput)
	}{
		{"empty food items", func(in *CreateDonationInput) { in.FoodItems = nil }},
		{"non-positive serves", func(in *CreateDonationInput) { in.Serves = 0 }},
		{"past pickup deadline", func(in *CreateDonationInput) { in.PickupBy = time.Now().Add(-time.Hour) }},
		{"longitude out of range", func(in *CreateDonationInput) { in.Location.Longitude = 200 }},
		{"latitude out of range", func(in *CreateDonationInput) { in.Location.Latitude = -95 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := f.svc.CreateDonation(ctx, donor.ID, in)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "got %v", err)
		})
	}

	_, err := f.svc.CreateDonation(ctx, volunteer.ID, validInput())
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.svc.CreateDonation(ctx, "missing", validInput())
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	// Failed validation leaves the store untouched.
	listed, err := f.svc.ListByDonor(ctx, donor.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestEditDonation(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	other := f.addUser(t, "other", entity.RoleDonor)
	volunteer := f.addUser(t, "vol", entity.RoleVolunteer)
	ctx := context.Background()

	d, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)

	edit := validInput()
	edit.Serves = 25
	edit.FoodItems = []entity.FoodItem{{Name: "Chapati", Quantity: "40 pieces"}}

	_, err = f.svc.EditDonation(ctx, "missing", donor.ID, edit)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = f.svc.EditDonation(ctx, d.ID, other.ID, edit)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	updated, err := f.svc.EditDonation(ctx, d.ID, donor.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Serves)
	assert.Equal(t, "Chapati", updated.FoodItems[0].Name)

	// Once accepted, edits fail with invalid state regardless of actor.
	_, err = f.svc.AcceptDonation(ctx, d.ID, volunteer.ID)
	require.NoError(t, err)
	_, err = f.svc.EditDonation(ctx, d.ID, donor.ID, edit)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestAcceptRejectComplete(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	v1 := f.addUser(t, "v1", entity.RoleVolunteer)
	v2 := f.addUser(t, "v2", entity.RoleVolunteer)
	ctx := context.Background()

	d, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)

	_, err = f.svc.AcceptDonation(ctx, d.ID, donor.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden), "donors cannot accept")

	_, err = f.svc.AcceptDonation(ctx, "missing", v1.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	accepted, err := f.svc.AcceptDonation(ctx, d.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPickupAccepted, accepted.Status)
	require.NotNil(t, accepted.VolunteerID)
	assert.Equal(t, v1.ID, *accepted.VolunteerID)

	_, err = f.svc.AcceptDonation(ctx, d.ID, v2.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	_, err = f.svc.RejectDonation(ctx, d.ID, v2.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	_, err = f.svc.CompleteDonation(ctx, d.ID, v2.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	released, err := f.svc.RejectDonation(ctx, d.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAvailable, released.Status)
	assert.Nil(t, released.VolunteerID)

	// Second reject fails: no assigned volunteer anymore.
	_, err = f.svc.RejectDonation(ctx, d.ID, v1.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.svc.AcceptDonation(ctx, d.ID, v2.ID)
	require.NoError(t, err)
	done, err := f.svc.CompleteDonation(ctx, d.ID, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, done.Status)

	// Completed is terminal for accepts.
	_, err = f.svc.AcceptDonation(ctx, d.ID, v1.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	ctx := context.Background()

	const contenders = 8
	volunteers := make([]*entity.User, contenders)
	for i := range volunteers {
		volunteers[i] = f.addUser(t, "vol"+string(rune('a'+i)), entity.RoleVolunteer)
	}

	d, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AcceptDonation(ctx, d.ID, volunteers[i].ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState), "loser got %v", err)
		}
	}
	assert.Equal(t, 1, wins)

	got, err := f.svc.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPickupAccepted, got.Status)
	require.NotNil(t, got.VolunteerID)
}

func TestFindNearby(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	volunteer := f.addUser(t, "vol", entity.RoleVolunteer)
	ctx := context.Background()
	origin := entity.GeoPoint{Longitude: 77.0, Latitude: 12.9}

	at := func(lng, lat float64, serves int) *entity.Donation {
		in := validInput()
		in.Location = entity.GeoPoint{Longitude: lng, Latitude: lat}
		in.Serves = serves
		d, err := f.svc.CreateDonation(ctx, donor.ID, in)
		require.NoError(t, err)
		return d
	}

	near := at(77.0, 12.9, 10)       // 0 m
	mid := at(77.1, 12.9, 4)         // ~11 km
	far := at(77.3, 12.9, 10)        // ~33 km
	tooFar := at(78.0, 12.9, 10)     // ~109 km, outside the 50km default
	accepted := at(77.05, 12.9, 10)  // ~5.4 km, then accepted
	completed := at(77.02, 12.9, 10) // ~2.2 km, then completed

	_, err := f.svc.AcceptDonation(ctx, accepted.ID, volunteer.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptDonation(ctx, completed.ID, volunteer.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteDonation(ctx, completed.ID, volunteer.ID)
	require.NoError(t, err)

	res, err := f.svc.FindNearby(ctx, origin, 0, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(res))
	for _, r := range res {
		ids = append(ids, r.Donation.ID)
	}
	// Distance-ascending, Completed and out-of-range excluded, accepted kept.
	assert.Equal(t, []string{near.ID, accepted.ID, mid.ID, far.ID}, ids)
	assert.NotContains(t, ids, tooFar.ID)
	assert.NotContains(t, ids, completed.ID)

	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i].DistanceMeters, res[i-1].DistanceMeters)
	}

	// minServes filter.
	res, err = f.svc.FindNearby(ctx, origin, 5, 0)
	require.NoError(t, err)
	for _, r := range res {
		assert.GreaterOrEqual(t, r.Donation.Serves, 5)
		assert.NotEqual(t, mid.ID, r.Donation.ID)
	}

	// Negative minServes behaves as zero.
	all, err := f.svc.FindNearby(ctx, origin, -3, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFindNearbyTieBreakAndRedaction(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	ctx := context.Background()
	origin := entity.GeoPoint{Longitude: 77.0, Latitude: 12.9}

	var first, second *entity.Donation
	for i := 0; i < 2; i++ {
		in := validInput()
		d, err := f.svc.CreateDonation(ctx, donor.ID, in)
		require.NoError(t, err)
		if i == 0 {
			first = d
		} else {
			second = d
		}
	}

	res, err := f.svc.FindNearby(ctx, origin, 0, 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	// Equal distance: store-assigned id ascending.
	assert.Equal(t, first.ID, res[0].Donation.ID)
	assert.Equal(t, second.ID, res[1].Donation.ID)

	// Donor summaries never carry password material.
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")
	assert.NotContains(t, string(b), "$2a$")
	assert.Equal(t, donor.FullName, res[0].Donor.FullName)
	assert.Equal(t, donor.PhoneNumber, res[0].Donor.PhoneNumber)
}

func TestFindNearbyDropsUnresolvableDonor(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	ghost := f.addUser(t, "ghost", entity.RoleDonor)
	ctx := context.Background()
	origin := entity.GeoPoint{Longitude: 77.0, Latitude: 12.9}

	kept, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)
	_, err = f.svc.CreateDonation(ctx, ghost.ID, validInput())
	require.NoError(t, err)

	f.users.Delete(ghost.ID)

	res, err := f.svc.FindNearby(ctx, origin, 0, 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, kept.ID, res[0].Donation.ID)
}

func TestFindNearbyValidatesOrigin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FindNearby(ctx, entity.GeoPoint{Longitude: 190, Latitude: 12.9}, 0, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = f.svc.FindNearby(ctx, entity.GeoPoint{Longitude: 77, Latitude: 91}, 0, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestListDonations(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "donor", entity.RoleDonor)
	volunteer := f.addUser(t, "vol", entity.RoleVolunteer)
	ctx := context.Background()

	d, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)
	_, err = f.svc.AcceptDonation(ctx, d.ID, volunteer.ID)
	require.NoError(t, err)

	mine, err := f.svc.ListByDonor(ctx, donor.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Volunteer)
	assert.Equal(t, volunteer.FullName, mine[0].Volunteer.FullName)

	pickups, err := f.svc.ListByVolunteer(ctx, volunteer.ID)
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	require.NotNil(t, pickups[0].Donor)
	assert.Equal(t, donor.PhoneNumber, pickups[0].Donor.PhoneNumber)
}

// Full walkthrough: create, contested accept, loser reject, winner
// complete, completed listing no longer surfaces nearby.
func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	donor := f.addUser(t, "D", entity.RoleDonor)
	v1 := f.addUser(t, "V1", entity.RoleVolunteer)
	v2 := f.addUser(t, "V2", entity.RoleVolunteer)
	ctx := context.Background()
	origin := entity.GeoPoint{Longitude: 77.0, Latitude: 12.9}

	d, err := f.svc.CreateDonation(ctx, donor.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAvailable, d.Status)

	var wg sync.WaitGroup
	var err1, err2 error
	wg.Add(2)
	go func() { defer wg.Done(); _, err1 = f.svc.AcceptDonation(ctx, d.ID, v1.ID) }()
	go func() { defer wg.Done(); _, err2 = f.svc.AcceptDonation(ctx, d.ID, v2.ID) }()
	wg.Wait()

	require.True(t, (err1 == nil) != (err2 == nil), "exactly one accept must win: %v / %v", err1, err2)
	winner, loser := v1, v2
	if err1 != nil {
		assert.True(t, apperrors.Is(err1, apperrors.CodeInvalidState))
		winner, loser = v2, v1
	} else {
		assert.True(t, apperrors.Is(err2, apperrors.CodeInvalidState))
	}

	got, err := f.svc.GetDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPickupAccepted, got.Status)
	require.NotNil(t, got.VolunteerID)
	assert.Equal(t, winner.ID, *got.VolunteerID)

	_, err = f.svc.RejectDonation(ctx, d.ID, loser.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	done, err := f.svc.CompleteDonation(ctx, d.ID, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, done.Status)

	res, err := f.svc.FindNearby(ctx, origin, 0, 0)
	require.NoError(t, err)
	for _, r := range res {
		assert.NotEqual(t, d.ID, r.Donation.ID)
	}
}
