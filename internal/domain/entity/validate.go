package entity

import (
	"strings"
	"time"

	"github.com/annadaan/annadaan-backend/pkg/apperrors"
)

// Pure validation helpers shared by the lifecycle and matching services.
// They touch no store and return typed validation errors.

// ValidatePoint checks coordinate well-formedness.
func ValidatePoint(p GeoPoint) error {
	fields := map[string]string{}
	if p.Longitude < -180 || p.Longitude > 180 {
		fields["longitude"] = "must be between -180 and 180"
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		fields["latitude"] = "must be between -90 and 90"
	}
	if len(fields) > 0 {
		return apperrors.Validation("malformed location", fields)
	}
	return nil
}

// ValidateServes checks the capacity indicator.
func ValidateServes(serves int) error {
	if serves <= 0 {
		return apperrors.Validation("invalid serves", map[string]string{"serves": "must be a positive integer"})
	}
	return nil
}

// ValidateFoodItems checks that at least one well-formed item is listed.
func ValidateFoodItems(items []FoodItem) error {
	if len(items) == 0 {
		return apperrors.Validation("invalid food items", map[string]string{"food_items": "at least one item is required"})
	}
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" || strings.TrimSpace(it.Quantity) == "" {
			return apperrors.Validation("invalid food items", map[string]string{"food_items": "every item needs a name and a quantity"})
		}
	}
	return nil
}

// ValidatePickupBy checks that the pickup deadline lies in the future.
func ValidatePickupBy(pickupBy time.Time, now time.Time) error {
	if pickupBy.IsZero() || !pickupBy.After(now) {
		return apperrors.Validation("invalid pickup deadline", map[string]string{"pickup_by": "must be in the future"})
	}
	return nil
}
