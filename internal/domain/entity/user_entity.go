package entity

import (
	"time"
)

// Role restricts a user to one side of the donation exchange.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
)

func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleVolunteer
}

// GeoPoint is a WGS84 coordinate pair, longitude first to match the wire
// format of geospatial stores.
type GeoPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// User is the aggregate root for identity. PasswordHash holds a bcrypt hash
// and must never leave the backend; Summary is the outward projection.
// Immutable after creation except Location.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Location     *GeoPoint `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the redacted view of a user attached to donation listings.
type UserSummary struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Role        Role      `json:"role"`
	Location    *GeoPoint `json:"location,omitempty"`
}

// Summary strips the password hash. No other field is altered.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		Location:    u.Location,
	}
}
