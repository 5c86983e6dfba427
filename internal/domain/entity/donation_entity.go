package entity

import (
	"time"
)

// DonationStatus is the lifecycle state of a donation listing.
type DonationStatus string

const (
	StatusAvailable      DonationStatus = "Available"
	StatusPickupAccepted DonationStatus = "Pickup Accepted"
	StatusCompleted      DonationStatus = "Completed"
	// StatusExpired is only ever produced by an external time-based sweep.
	StatusExpired DonationStatus = "Expired"
	// StatusCancelled is reserved; no code path produces it yet.
	StatusCancelled DonationStatus = "Cancelled"
)

// FoodItem is one line of a donation listing. Quantity is free text
// ("5 kg", "20 packets") because donors describe portions, not SKUs.
type FoodItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Donation is the aggregate root for a surplus-food listing.
//
// DonorID is set at creation and immutable. VolunteerID is non-nil exactly
// when Status is Pickup Accepted or Completed; every status change goes
// through the donation service's state machine backed by the repository's
// compare-and-swap update.
type Donation struct {
	ID          string         `json:"id"`
	DonorID     string         `json:"donor_id"`
	FoodItems   []FoodItem     `json:"food_items"`
	Serves      int            `json:"serves"`
	PickupBy    time.Time      `json:"pickup_by"`
	Status      DonationStatus `json:"status"`
	Location    GeoPoint       `json:"location"`
	ImageURL    string         `json:"image_url,omitempty"`
	VolunteerID *string        `json:"volunteer_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Open reports whether the donation should still surface in nearby search.
func (d *Donation) Open() bool {
	return d.Status == StatusAvailable || d.Status == StatusPickupAccepted
}

// AssignedTo reports whether the given volunteer currently holds the pickup.
func (d *Donation) AssignedTo(volunteerID string) bool {
	return d.VolunteerID != nil && *d.VolunteerID == volunteerID
}
