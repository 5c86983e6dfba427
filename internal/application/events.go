package application

import (
	"context"
	"time"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
)

// Lifecycle event types published to the donation-events queue.
const (
	EventDonationCreated = "donation.created"
	EventDonationEdited  = "donation.edited"
	EventPickupAccepted  = "pickup.accepted"
	EventPickupRejected  = "pickup.rejected"
	EventPickupCompleted = "pickup.completed"
)

// DonationEvent is the JSON payload consumed by the notify worker.
type DonationEvent struct {
	Type        string    `json:"type"`
	DonationID  string    `json:"donation_id"`
	DonorID     string    `json:"donor_id"`
	VolunteerID string    `json:"volunteer_id,omitempty"`
	Serves      int       `json:"serves"`
	PickupBy    time.Time `json:"pickup_by"`
	At          time.Time `json:"at"`
}

// EventPublisher is satisfied by helpers.RabbitPublisher and by test fakes.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

func (s *DonationService) publish(ctx context.Context, eventType string, d *entity.Donation) {
	if s.Events == nil {
		return
	}
	ev := DonationEvent{
		Type:       eventType,
		DonationID: d.ID,
		DonorID:    d.DonorID,
		Serves:     d.Serves,
		PickupBy:   d.PickupBy,
		At:         time.Now().UTC(),
	}
	if d.VolunteerID != nil {
		ev.VolunteerID = *d.VolunteerID
	}
	if err := s.Events.PublishJSON(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("donation_id", d.ID).Warn("event publish failed")
	}
}
