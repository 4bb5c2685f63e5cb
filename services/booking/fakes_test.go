package booking

import (
	"context"
	"sync"
	"time"

	bookingRepo "glowbook/database/repository/booking"
	expertRepo "glowbook/database/repository/expert"
	"glowbook/models"
)

// memBookingRepo is an in-memory BookingRepository. ClaimSlot serializes on
// the mutex, mirroring the store-level atomicity of the real implementation.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (r *memBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) ClaimSlot(_ context.Context, claim bookingRepo.SlotClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[claim.BookingID]
	if !ok || b.Status != models.BookingStatusPendingPayment {
		return bookingRepo.ErrPrecondition
	}
	for _, other := range r.bookings {
		if other.ID == claim.BookingID || other.ExpertID != claim.ExpertID || other.Date != claim.Date {
			continue
		}
		if other.Occupies(claim.HoldCutoff) && other.Overlaps(claim.Start, claim.End) {
			return bookingRepo.ErrSlotConflict
		}
	}
	heldAt := claim.HeldAt
	b.Date, b.Start, b.End = claim.Date, claim.Start, claim.End
	b.SlotKey, b.HeldAt = claim.SlotKey, &heldAt
	return nil
}

func (r *memBookingRepo) SetPaymentLink(_ context.Context, id, gatewayOrderID, paymentURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.PaymentOrderID, b.PaymentURL = gatewayOrderID, paymentURL
	return nil
}

func (r *memBookingRepo) MarkConfirmed(_ context.Context, id, paymentID string, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != models.BookingStatusPendingPayment {
		return bookingRepo.ErrPrecondition
	}
	b.Status = models.BookingStatusConfirmed
	b.PaymentID = paymentID
	b.PaidAt = &paidAt
	return nil
}

func (r *memBookingRepo) MarkFailed(_ context.Context, id, reason string) error {
	return r.finalize(id, models.BookingStatusFailed, reason)
}

func (r *memBookingRepo) MarkCancelled(_ context.Context, id, reason string) error {
	return r.finalize(id, models.BookingStatusCancelled, reason)
}

func (r *memBookingRepo) finalize(id string, status models.BookingStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != models.BookingStatusPendingPayment {
		return bookingRepo.ErrPrecondition
	}
	b.Status = status
	b.FailReason = reason
	return nil
}

func (r *memBookingRepo) ActiveForExpertDate(_ context.Context, expertID, date string, holdCutoff time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.ExpertID == expertID && b.Date == date && b.Occupies(holdCutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) EnsureIndexes(context.Context) error { return nil }

// memExpertRepo serves a fixed set of experts.
type memExpertRepo struct {
	experts map[string]*models.Expert
}

func (r *memExpertRepo) GetByID(_ context.Context, id string) (*models.Expert, error) {
	e, ok := r.experts[id]
	if !ok {
		return nil, expertRepo.ErrNotFound
	}
	return e, nil
}

// stubGateway mints deterministic payment links and can be told to fail.
type stubGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGateway) CreatePaymentLink(_ context.Context, req models.PaymentLinkRequest) (*models.PaymentLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &models.PaymentLink{
		RedirectURL:    "https://pay.example.com/" + req.BookingID,
		GatewayOrderID: "order_" + req.BookingID,
		ReferenceID:    req.BookingID,
	}, nil
}

// stubScheduler records expiry scheduling calls.
type stubScheduler struct {
	mu        sync.Mutex
	scheduled []string
}

func (s *stubScheduler) ScheduleExpiry(bookingID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, bookingID)
	return nil
}
