package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

func TestValidatePoint(t *testing.T) {
	assert.NoError(t, ValidatePoint(GeoPoint{Longitude: 77.0, Latitude: 12.9}))
	assert.NoError(t, ValidatePoint(GeoPoint{Longitude: -180, Latitude: 90}))

	err := ValidatePoint(GeoPoint{Longitude: 181, Latitude: 12.9})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	err = ValidatePoint(GeoPoint{Longitude: 77, Latitude: -90.5})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestValidateServes(t *testing.T) {
	assert.NoError(t, ValidateServes(1))
	assert.Error(t, ValidateServes(0))
	assert.Error(t, ValidateServes(-3))
}

func TestValidateFoodItems(t *testing.T) {
	assert.Error(t, ValidateFoodItems(nil))
	assert.Error(t, ValidateFoodItems([]FoodItem{{Name: "Rice", Quantity: "  "}}))
	assert.NoError(t, ValidateFoodItems([]FoodItem{{Name: "Rice", Quantity: "5 kg"}}))
}

func TestValidatePickupBy(t *testing.T) {
	now := time.Now()
	assert.Error(t, ValidatePickupBy(time.Time{}, now))
	assert.Error(t, ValidatePickupBy(now.Add(-time.Minute), now))
	assert.Error(t, ValidatePickupBy(now, now))
	assert.NoError(t, ValidatePickupBy(now.Add(24*time.Hour), now))
}

func TestDonationHelpers(t *testing.T) {
	vol := "v1"
	d := Donation{Status: StatusPickupAccepted, VolunteerID: &vol}
	assert.True(t, d.Open())
	assert.True(t, d.AssignedTo("v1"))
	assert.False(t, d.AssignedTo("v2"))

	d = Donation{Status: StatusCompleted}
	assert.False(t, d.Open())
	assert.False(t, d.AssignedTo("v1"))
}
