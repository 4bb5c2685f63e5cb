package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"glowbook/models"
)

func mondayHours(start, end int) map[string]models.DayWindow {
	return map[string]models.DayWindow{
		"monday":    {Start: start, End: end},
		"tuesday":   {Start: start, End: end},
		"wednesday": {Start: start, End: end},
		"thursday":  {Start: start, End: end},
		"friday":    {Start: start, End: end},
	}
}

// fixedNow is a Monday, 08:00 local time.
var fixedNow = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*DefaultBookingService, *memBookingRepo, *stubGateway, *stubScheduler) {
	t.Helper()
	repo := newMemBookingRepo()
	gateway := &stubGateway{}
	scheduler := &stubScheduler{}
	experts := &memExpertRepo{experts: map[string]*models.Expert{
		"exp-1": {
			ID:            "exp-1",
			Name:          "Dr. Mehta",
			Type:          "dermatologist",
			Active:        true,
			RatePerMinute: 50,
			WeeklyHours:   mondayHours(9*60, 17*60),
		},
		"exp-idle": {
			ID:     "exp-idle",
			Name:   "On Leave",
			Active: false,
		},
	}}
	svc := &DefaultBookingService{
		Repo:        repo,
		Experts:     experts,
		Gateway:     gateway,
		Holds:       scheduler,
		Granularity: 30,
		HoldTTL:     15 * time.Minute,
		Horizon:     14,
		Loc:         time.UTC,
		Logger:      zap.NewNop(),
		Now:         func() time.Time { return fixedNow },
	}
	return svc, repo, gateway, scheduler
}

func validPayer() models.PayerSnapshot {
	return models.PayerSnapshot{Name: "Asha Rao", Email: "asha@example.com", Phone: "+919876543210"}
}

func TestInitiate(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, models.BookingStatusPendingPayment, b.Status)
	assert.Equal(t, int64(1500), b.Amount, "30 min at 50 paise/min")
	assert.Equal(t, validPayer(), b.Payer)
	assert.Empty(t, b.Date, "no slot before AttachPayment")
	assert.Nil(t, b.HeldAt)
}

func TestInitiateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		expertID string
		duration int
		payer    models.PayerSnapshot
		wantCode ErrorCode
	}{
		{"missing user", "", "exp-1", 30, validPayer(), CodeInvalidInput},
		{"zero duration", "user-1", "exp-1", 0, validPayer(), CodeInvalidInput},
		{"negative duration", "user-1", "exp-1", -30, validPayer(), CodeInvalidInput},
		{"unaligned duration", "user-1", "exp-1", 45, validPayer(), CodeInvalidInput},
		{"missing payer email", "user-1", "exp-1", 30, models.PayerSnapshot{Name: "A", Phone: "1"}, CodeInvalidInput},
		{"unknown expert", "user-1", "nope", 30, validPayer(), CodeNotFound},
		{"inactive expert", "user-1", "exp-idle", 30, validPayer(), CodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Initiate(ctx, tc.userID, tc.expertID, tc.duration, tc.payer)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, CodeOf(err))
		})
	}
}

func TestInitiatePayerSnapshotIsImmutable(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	payer := validPayer()
	b, err := svc.Initiate(ctx, "user-1", "exp-1", 60, payer)
	require.NoError(t, err)

	// Mutating the caller's struct after the fact must not leak into the
	// stored booking.
	payer.Email = "changed@example.com"
	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", stored.Payer.Email)
}

func TestAttachPayment(t *testing.T) {
	svc, repo, _, scheduler := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)

	got, err := svc.AttachPayment(ctx, b.ID, "2026-03-02", 10*60)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", got.Date)
	assert.Equal(t, 600, got.Start)
	assert.Equal(t, 630, got.End)
	assert.Equal(t, "2026-03-02#600#630", got.SlotKey)
	assert.Equal(t, "https://pay.example.com/"+b.ID, got.PaymentURL)
	assert.Equal(t, "order_"+b.ID, got.PaymentOrderID)
	require.NotNil(t, got.HeldAt)
	assert.Equal(t, []string{b.ID}, scheduler.scheduled)

	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, got.PaymentURL, stored.PaymentURL)
	assert.Equal(t, models.BookingStatusPendingPayment, stored.Status)
}

func TestAttachPaymentValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)

	tests := []struct {
		name     string
		date     string
		start    int
		wantCode ErrorCode
	}{
		{"bad date", "02-03-2026", 600, CodeInvalidInput},
		{"unaligned start", "2026-03-02", 615, CodeInvalidInput},
		{"negative start", "2026-03-02", -30, CodeInvalidInput},
		{"past slot", "2026-03-01", 600, CodeInvalidInput},
		{"earlier today", "2026-03-02", 7 * 60, CodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AttachPayment(ctx, b.ID, tc.date, tc.start)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, CodeOf(err))
		})
	}
}

func TestAttachPaymentSlotTaken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, first.ID, "2026-03-02", 600)
	require.NoError(t, err)

	second, err := svc.Initiate(ctx, "user-2", "exp-1", 60, validPayer())
	require.NoError(t, err)

	// Exact overlap and partial overlap both lose.
	_, err = svc.AttachPayment(ctx, second.ID, "2026-03-02", 600)
	require.Error(t, err)
	assert.Equal(t, CodeSlotTaken, CodeOf(err))

	_, err = svc.AttachPayment(ctx, second.ID, "2026-03-02", 570)
	require.Error(t, err)
	assert.Equal(t, CodeSlotTaken, CodeOf(err))

	// An adjacent interval is fine.
	_, err = svc.AttachPayment(ctx, second.ID, "2026-03-02", 630)
	require.NoError(t, err)
}

func TestAttachPaymentExpiredHoldDoesNotBlock(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	stale, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, stale.ID, "2026-03-02", 600)
	require.NoError(t, err)

	// Age the hold past the TTL.
	repo.mu.Lock()
	old := fixedNow.Add(-16 * time.Minute)
	repo.bookings[stale.ID].HeldAt = &old
	repo.mu.Unlock()

	fresh, err := svc.Initiate(ctx, "user-2", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, fresh.ID, "2026-03-02", 600)
	require.NoError(t, err)
}

func TestAttachPaymentGatewayFailureKeepsHold(t *testing.T) {
	svc, repo, gateway, _ := newTestService(t)
	ctx := context.Background()
	gateway.err = newError(CodeGateway, "payment provider unreachable")

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)

	_, err = svc.AttachPayment(ctx, b.ID, "2026-03-02", 600)
	require.Error(t, err)
	assert.Equal(t, CodeGateway, CodeOf(err))

	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPendingPayment, stored.Status)
	assert.NotNil(t, stored.HeldAt, "slot hold survives the gateway failure")
	assert.Empty(t, stored.PaymentURL)
}

func TestAttachPaymentWrongStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, b.ID, "2026-03-02", 600)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, b.ID, "pi_123")
	require.NoError(t, err)

	_, err = svc.AttachPayment(ctx, b.ID, "2026-03-02", 660)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestConfirmIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, b.ID, "2026-03-02", 600)
	require.NoError(t, err)

	first, err := svc.Confirm(ctx, b.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, first.Status)
	assert.Equal(t, "pi_123", first.PaymentID)
	require.NotNil(t, first.PaidAt)

	// A duplicate callback, even with a different reference, returns the
	// booking unchanged.
	second, err := svc.Confirm(ctx, b.ID, "pi_456")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", second.PaymentID)
	assert.Equal(t, first.PaidAt.Unix(), second.PaidAt.Unix())
}

func TestConfirmRejectsTerminalStates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.Fail(ctx, b.ID, "card_declined")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, b.ID, "pi_123")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestFailIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)

	first, err := svc.Fail(ctx, b.ID, "card_declined")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusFailed, first.Status)
	assert.Equal(t, "card_declined", first.FailReason)

	second, err := svc.Fail(ctx, b.ID, "card_declined")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusFailed, second.Status)
}

func TestCancel(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)

	got, err := svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	// Confirmed bookings cannot be cancelled through this path.
	b2, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, b2.ID, "2026-03-02", 600)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, b2.ID, "pi_1")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, b2.ID)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))
}

func TestReleaseExpiredHold(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, b.ID, "2026-03-02", 600)
	require.NoError(t, err)

	// Hold still fresh: nothing happens.
	released, err := svc.ReleaseExpiredHold(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, released)

	repo.mu.Lock()
	old := fixedNow.Add(-20 * time.Minute)
	repo.bookings[b.ID].HeldAt = &old
	repo.mu.Unlock()

	released, err = svc.ReleaseExpiredHold(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, released)

	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	assert.Equal(t, "hold expired", stored.FailReason)

	// Second run is a no-op; unknown ids are swallowed.
	released, err = svc.ReleaseExpiredHold(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, released)
	released, err = svc.ReleaseExpiredHold(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestReleaseExpiredHoldSkipsConfirmed(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)
	_, err = svc.AttachPayment(ctx, b.ID, "2026-03-02", 600)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, b.ID, "pi_1")
	require.NoError(t, err)

	repo.mu.Lock()
	old := fixedNow.Add(-20 * time.Minute)
	repo.bookings[b.ID].HeldAt = &old
	repo.mu.Unlock()

	released, err := svc.ReleaseExpiredHold(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestGetBooking(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Initiate(ctx, "user-1", "exp-1", 30, validPayer())
	require.NoError(t, err)

	detail, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, detail.ID)
	assert.Equal(t, "user-1", detail.UserID)
	assert.Equal(t, "Dr. Mehta", detail.Expert.Name)
	assert.Equal(t, int64(1500), detail.Amount)

	_, err = svc.GetBooking(ctx, "ghost")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestQuote(t *testing.T) {
	expert := &models.Expert{RatePerMinute: 50}
	amount, err := Quote(expert, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), amount)

	_, err = Quote(expert, 0)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))

	_, err = Quote(&models.Expert{}, 30)
	require.Error(t, err)
	assert.Equal(t, CodeInternal, CodeOf(err))
}
