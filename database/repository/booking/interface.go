package bookingRepo

import (
	"context"
	"errors"
	"time"

	"glowbook/models"
)

var (
	// ErrNotFound indicates the booking id resolves to nothing.
	ErrNotFound = errors.New("booking not found")
	// ErrSlotConflict indicates another active booking already holds an
	// overlapping interval for the same expert.
	ErrSlotConflict = errors.New("slot already booked")
	// ErrPrecondition indicates a conditional update matched no document:
	// the booking is gone or no longer in the required status.
	ErrPrecondition = errors.New("booking status precondition failed")
)

// SlotClaim is the atomic check-and-claim input for AttachPayment.
type SlotClaim struct {
	BookingID string
	ExpertID  string
	Date      string // "2006-01-02"
	Start     int    // minutes from midnight
	End       int
	SlotKey   string    // "date#start#end"
	HeldAt    time.Time // hold timestamp written on success
	// Pending holds with held_at at or before this instant are treated as
	// released and do not block the claim.
	HoldCutoff time.Time
}

// BookingRepository is the persistence contract for booking documents.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// ClaimSlot atomically verifies no overlapping active booking exists for
	// the expert and writes the slot fields onto the pending booking.
	// Returns ErrSlotConflict when the slot is taken and ErrPrecondition when
	// the booking is not claimable.
	ClaimSlot(ctx context.Context, claim SlotClaim) error

	SetPaymentLink(ctx context.Context, id, gatewayOrderID, paymentURL string) error
	MarkConfirmed(ctx context.Context, id, paymentID string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	MarkCancelled(ctx context.Context, id, reason string) error

	// ActiveForExpertDate returns the bookings that occupy time on the given
	// date: confirmed ones plus pending holds newer than holdCutoff.
	ActiveForExpertDate(ctx context.Context, expertID, date string, holdCutoff time.Time) ([]models.Booking, error)

	EnsureIndexes(ctx context.Context) error
}
