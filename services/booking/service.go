package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "glowbook/database/repository/booking"
	expertRepo "glowbook/database/repository/expert"
	"glowbook/models"
)

func (s *DefaultBookingService) validateDuration(duration int) error {
	if duration <= 0 {
		return newError(CodeInvalidInput, "duration must be a positive number of minutes, got %d", duration)
	}
	if s.Granularity > 0 && duration%s.Granularity != 0 {
		return newError(CodeInvalidInput, "duration %d is not a multiple of the %d-minute slot granularity", duration, s.Granularity)
	}
	return nil
}

func (s *DefaultBookingService) getActiveExpert(ctx context.Context, expertID string) (*models.Expert, error) {
	expert, err := s.Experts.GetByID(ctx, expertID)
	if err != nil {
		if errors.Is(err, expertRepo.ErrNotFound) {
			return nil, newError(CodeNotFound, "expert %s not found", expertID)
		}
		return nil, wrapError(CodeInternal, err, "could not load expert %s", expertID)
	}
	if !expert.Active {
		return nil, newError(CodeInvalidInput, "expert %s is not accepting bookings", expertID)
	}
	return expert, nil
}

func (s *DefaultBookingService) getBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, newError(CodeNotFound, "booking %s not found", id)
		}
		return nil, wrapError(CodeInternal, err, "could not load booking %s", id)
	}
	return b, nil
}

// Initiate creates a pending_payment booking with no slot attached yet. The
// amount comes from the expert's rate card, and the payer snapshot is taken
// from the submitted form, never from the live user profile.
func (s *DefaultBookingService) Initiate(ctx context.Context, userID, expertID string, duration int, form models.PayerSnapshot) (*models.Booking, error) {
	if userID == "" || expertID == "" {
		return nil, newError(CodeInvalidInput, "missing user or expert id")
	}
	if err := s.validateDuration(duration); err != nil {
		return nil, err
	}
	if strings.TrimSpace(form.Name) == "" || strings.TrimSpace(form.Email) == "" || strings.TrimSpace(form.Phone) == "" {
		return nil, newError(CodeInvalidInput, "payer name, email and phone are required")
	}

	expert, err := s.getActiveExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	amount, err := Quote(expert, duration)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		ID:        uuid.New().String(),
		ExpertID:  expertID,
		UserID:    userID,
		Duration:  duration,
		Status:    models.BookingStatusPendingPayment,
		Amount:    amount,
		Payer:     form,
		CreatedAt: s.clock(),
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, wrapError(CodeInternal, err, "could not create booking")
	}

	s.Logger.Info("booking initiated",
		zap.String("bookingID", b.ID),
		zap.String("expertID", expertID),
		zap.Int64("amount", amount))
	return b, nil
}

// AttachPayment claims the requested slot for the booking and requests a
// payment link. The conflict check runs inside the store as a single atomic
// claim; losing the race surfaces as the slot-taken error kind. A gateway
// failure leaves the booking pending with the slot held, so the caller may
// retry until the hold expires.
func (s *DefaultBookingService) AttachPayment(ctx context.Context, bookingID, date string, start int) (*models.Booking, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusPendingPayment {
		return nil, newError(CodeInvalidTransition, "cannot attach payment to a %s booking", b.Status)
	}

	now := s.clock()
	day, err := time.ParseInLocation("2006-01-02", date, s.location())
	if err != nil {
		return nil, newError(CodeInvalidInput, "invalid date %q, want YYYY-MM-DD", date)
	}
	if start < 0 || (s.Granularity > 0 && start%s.Granularity != 0) {
		return nil, newError(CodeInvalidInput, "slot start %d is not aligned to the %d-minute granularity", start, s.Granularity)
	}
	end := start + b.Duration
	if !day.Add(time.Duration(start) * time.Minute).After(now) {
		return nil, newError(CodeInvalidInput, "requested slot is in the past")
	}

	claim := bookingRepo.SlotClaim{
		BookingID:  b.ID,
		ExpertID:   b.ExpertID,
		Date:       date,
		Start:      start,
		End:        end,
		SlotKey:    slotKey(date, start, end),
		HeldAt:     now,
		HoldCutoff: s.holdCutoff(now),
	}
	if err := s.Repo.ClaimSlot(ctx, claim); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrSlotConflict):
			return nil, newError(CodeSlotTaken, "someone just booked this slot, pick another")
		case errors.Is(err, bookingRepo.ErrPrecondition):
			return nil, newError(CodeInvalidTransition, "booking %s is no longer payable", b.ID)
		default:
			return nil, wrapError(CodeInternal, err, "could not claim slot")
		}
	}
	b.Date, b.Start, b.End = date, start, end
	b.SlotKey, b.HeldAt = claim.SlotKey, &claim.HeldAt

	if s.Holds != nil {
		if err := s.Holds.ScheduleExpiry(b.ID, s.HoldTTL); err != nil {
			// Timestamp filtering keeps correctness even without the task.
			s.Logger.Warn("could not schedule hold expiry", zap.String("bookingID", b.ID), zap.Error(err))
		}
	}

	link, err := s.Gateway.CreatePaymentLink(ctx, models.PaymentLinkRequest{
		BookingID: b.ID,
		Amount:    b.Amount,
		Name:      b.Payer.Name,
		Email:     b.Payer.Email,
		Phone:     b.Payer.Phone,
	})
	if err != nil {
		s.Logger.Warn("payment link creation failed, hold kept",
			zap.String("bookingID", b.ID), zap.Error(err))
		return nil, err
	}
	if err := s.Repo.SetPaymentLink(ctx, b.ID, link.GatewayOrderID, link.RedirectURL); err != nil {
		return nil, wrapError(CodeInternal, err, "could not persist payment link")
	}
	b.PaymentOrderID, b.PaymentURL = link.GatewayOrderID, link.RedirectURL

	s.Logger.Info("slot held, payment link issued",
		zap.String("bookingID", b.ID),
		zap.String("slot", b.SlotKey))
	return b, nil
}

// Confirm finalizes a paid booking. Idempotent: an already-confirmed booking
// is returned unchanged, so duplicate gateway callbacks are harmless. The
// conflict check is NOT re-run — the slot was reserved at attach time and
// confirmation only advances payment state.
func (s *DefaultBookingService) Confirm(ctx context.Context, bookingID, gatewayPaymentID string) (*models.Booking, error) {
	if gatewayPaymentID == "" {
		return nil, newError(CodeInvalidInput, "missing gateway payment reference")
	}
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case models.BookingStatusConfirmed, models.BookingStatusCompleted:
		return b, nil
	case models.BookingStatusPendingPayment:
	default:
		return nil, newError(CodeInvalidTransition, "cannot confirm a %s booking", b.Status)
	}

	paidAt := s.clock()
	if err := s.Repo.MarkConfirmed(ctx, b.ID, gatewayPaymentID, paidAt); err != nil {
		if errors.Is(err, bookingRepo.ErrPrecondition) {
			// Raced another callback; reload and accept if it confirmed.
			fresh, ferr := s.getBooking(ctx, bookingID)
			if ferr != nil {
				return nil, ferr
			}
			if fresh.Status == models.BookingStatusConfirmed || fresh.Status == models.BookingStatusCompleted {
				return fresh, nil
			}
			return nil, newError(CodeInvalidTransition, "cannot confirm a %s booking", fresh.Status)
		}
		return nil, wrapError(CodeInternal, err, "could not confirm booking")
	}
	b.Status = models.BookingStatusConfirmed
	b.PaymentID = gatewayPaymentID
	b.PaidAt = &paidAt

	s.Logger.Info("booking confirmed",
		zap.String("bookingID", b.ID),
		zap.String("paymentID", gatewayPaymentID))
	return b, nil
}

// Fail records a payment failure. Idempotent once the booking is failed.
func (s *DefaultBookingService) Fail(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	return s.finalize(ctx, bookingID, models.BookingStatusFailed, reason)
}

// Cancel releases a pending booking explicitly (user abandon or reclaimer).
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.finalize(ctx, bookingID, models.BookingStatusCancelled, "cancelled")
}

func (s *DefaultBookingService) finalize(ctx context.Context, bookingID string, status models.BookingStatus, reason string) (*models.Booking, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == status {
		return b, nil
	}
	if !b.Status.CanTransitionTo(status) {
		return nil, newError(CodeInvalidTransition, "cannot move a %s booking to %s", b.Status, status)
	}

	mark := s.Repo.MarkFailed
	if status == models.BookingStatusCancelled {
		mark = s.Repo.MarkCancelled
	}
	if err := mark(ctx, b.ID, reason); err != nil {
		if errors.Is(err, bookingRepo.ErrPrecondition) {
			fresh, ferr := s.getBooking(ctx, bookingID)
			if ferr != nil {
				return nil, ferr
			}
			if fresh.Status == status {
				return fresh, nil
			}
			return nil, newError(CodeInvalidTransition, "cannot move a %s booking to %s", fresh.Status, status)
		}
		return nil, wrapError(CodeInternal, err, "could not finalize booking as %s", status)
	}
	b.Status = status
	b.FailReason = reason

	s.Logger.Info("booking finalized",
		zap.String("bookingID", b.ID),
		zap.String("status", string(status)),
		zap.String("reason", reason))
	return b, nil
}

// ReleaseExpiredHold cancels the booking iff it is still an unpaid hold
// whose TTL has elapsed. Used by the background reclaimer; reports whether
// anything changed.
func (s *DefaultBookingService) ReleaseExpiredHold(ctx context.Context, bookingID string) (bool, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		if IsCode(err, CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	if b.Status != models.BookingStatusPendingPayment || b.HeldAt == nil {
		return false, nil
	}
	if b.Occupies(s.holdCutoff(s.clock())) {
		// The hold was refreshed by a later attach; leave it alone.
		return false, nil
	}
	if err := s.Repo.MarkCancelled(ctx, b.ID, "hold expired"); err != nil {
		if errors.Is(err, bookingRepo.ErrPrecondition) {
			return false, nil
		}
		return false, wrapError(CodeInternal, err, "could not release expired hold")
	}
	s.Logger.Info("expired hold released", zap.String("bookingID", b.ID))
	return true, nil
}

// GetBooking returns the read projection for a booking, including the
// expert summary.
func (s *DefaultBookingService) GetBooking(ctx context.Context, id string) (*models.BookingDetail, error) {
	b, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := models.ExpertSummary{ID: b.ExpertID}
	if expert, err := s.Experts.GetByID(ctx, b.ExpertID); err == nil {
		summary.Name, summary.Type, summary.Avatar = expert.Name, expert.Type, expert.Avatar
	} else {
		s.Logger.Warn("could not load expert summary for booking",
			zap.String("bookingID", id), zap.Error(err))
	}

	return &models.BookingDetail{
		ID:         b.ID,
		UserID:     b.UserID,
		Expert:     summary,
		Date:       b.Date,
		Start:      b.Start,
		End:        b.End,
		Duration:   b.Duration,
		Status:     b.Status,
		Amount:     b.Amount,
		PaymentURL: b.PaymentURL,
		PaidAt:     b.PaidAt,
		Payer:      b.Payer,
		MeetLink:   b.MeetLink,
		CreatedAt:  b.CreatedAt,
	}, nil
}

// slotKey is the normalized identity of a slot for the uniqueness backstop.
func slotKey(date string, start, end int) string {
	return fmt.Sprintf("%s#%d#%d", date, start, end)
}
