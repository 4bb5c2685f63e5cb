package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusFailed         BookingStatus = "failed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusCompleted      BookingStatus = "completed"
)

// forwardTransitions encodes the only legal state changes. Everything not
// listed here (including resurrecting a failed or cancelled booking) is
// rejected.
var forwardTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPendingPayment: {BookingStatusConfirmed, BookingStatusFailed, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusCompleted},
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PayerSnapshot holds the contact details captured at booking time. It is
// immutable after Initiate: later edits to the user profile never flow back
// into an existing booking.
type PayerSnapshot struct {
	Name  string `bson:"name" json:"name" binding:"required"`
	Email string `bson:"email" json:"email" binding:"required,email"`
	Phone string `bson:"phone" json:"phone" binding:"required"`
}

// Booking is the persistent appointment record. Bookings are never deleted;
// failed and cancelled rows stay behind as an audit trail.
type Booking struct {
	ID       string `bson:"id" json:"id"`
	ExpertID string `bson:"expert_id" json:"expertId"`
	UserID   string `bson:"user_id" json:"userId"`

	// Slot fields are zero until AttachPayment claims a slot.
	Date     string `bson:"date,omitempty" json:"date,omitempty"`         // "2006-01-02"
	Start    int    `bson:"start,omitempty" json:"start,omitempty"`       // minutes from midnight
	End      int    `bson:"end,omitempty" json:"end,omitempty"`           // minutes from midnight
	Duration int    `bson:"duration" json:"duration"`                     // minutes, == End-Start once a slot is set
	SlotKey  string `bson:"slot_key,omitempty" json:"slotKey,omitempty"`  // "date#start#end", unique per expert among active bookings

	Status BookingStatus `bson:"status" json:"status"`
	Amount int64         `bson:"amount" json:"amount"` // minor currency units (paise)

	PaymentOrderID string     `bson:"payment_order_id,omitempty" json:"paymentOrderId,omitempty"`
	PaymentID      string     `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	PaymentURL     string     `bson:"payment_url,omitempty" json:"paymentUrl,omitempty"`
	PaidAt         *time.Time `bson:"paid_at,omitempty" json:"paidAt,omitempty"` // non-nil iff confirmed or completed

	Payer PayerSnapshot `bson:"payer" json:"payer"`

	HeldAt     *time.Time `bson:"held_at,omitempty" json:"heldAt,omitempty"` // set when the slot is claimed
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	FailReason string     `bson:"fail_reason,omitempty" json:"failReason,omitempty"`

	// Set post-confirmation by the scheduling collaborator.
	MeetLink    string   `bson:"meet_link,omitempty" json:"meetLink,omitempty"`
	Attachments []string `bson:"attachments,omitempty" json:"attachments,omitempty"`
}

// Occupies reports whether the booking still blocks its slot. Confirmed
// bookings always occupy; pending holds occupy only while held_at is newer
// than holdCutoff (now minus the hold TTL). This is the one predicate behind
// both slot generation and hold release.
func (b *Booking) Occupies(holdCutoff time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed, BookingStatusCompleted:
		return true
	case BookingStatusPendingPayment:
		return b.HeldAt != nil && b.HeldAt.After(holdCutoff)
	default:
		return false
	}
}

// Overlaps reports whether [start, end) intersects the booking's interval.
func (b *Booking) Overlaps(start, end int) bool {
	return b.Start < end && b.End > start
}
