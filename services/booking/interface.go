package booking

import (
	"context"
	"time"

	bookingRepo "glowbook/database/repository/booking"
	expertRepo "glowbook/database/repository/expert"
	"glowbook/models"

	"go.uber.org/zap"
)

// BookingService is the appointment lifecycle: slot discovery, intent,
// slot claim + payment link, and gateway-driven finalization.
type BookingService interface {
	AvailableSlots(ctx context.Context, expertID string, duration int) ([]models.DaySlots, error)
	Initiate(ctx context.Context, userID, expertID string, duration int, form models.PayerSnapshot) (*models.Booking, error)
	AttachPayment(ctx context.Context, bookingID, date string, start int) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID, gatewayPaymentID string) (*models.Booking, error)
	Fail(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string) (*models.Booking, error)
	ReleaseExpiredHold(ctx context.Context, bookingID string) (bool, error)
	GetBooking(ctx context.Context, id string) (*models.BookingDetail, error)
}

// HoldScheduler schedules the deferred release of an unpaid hold. Wired to
// the asynq reclaimer in main; failures are advisory because expired holds
// are also filtered out by timestamp everywhere they matter.
type HoldScheduler interface {
	ScheduleExpiry(bookingID string, delay time.Duration) error
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo    bookingRepo.BookingRepository
	Experts expertRepo.ExpertRepository
	Gateway PaymentGateway
	Holds   HoldScheduler

	Granularity int           // slot boundary step, minutes
	HoldTTL     time.Duration // pending hold lifetime
	Horizon     int           // days of slot generation, today inclusive
	Loc         *time.Location
	Logger      *zap.Logger

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

func (s *DefaultBookingService) clock() time.Time {
	if s.Now != nil {
		return s.Now().In(s.location())
	}
	return time.Now().In(s.location())
}

func (s *DefaultBookingService) location() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return time.UTC
}

func (s *DefaultBookingService) holdCutoff(now time.Time) time.Time {
	return now.Add(-s.HoldTTL)
}
