package models

// PaymentLinkRequest carries everything the gateway needs to mint a
// redirect-based payment link for a booking.
type PaymentLinkRequest struct {
	BookingID string
	Amount    int64 // minor currency units
	Name      string
	Email     string
	Phone     string
}

// PaymentLink is the normalized successful gateway response.
type PaymentLink struct {
	RedirectURL    string
	GatewayOrderID string
	ReferenceID    string
}

// PaymentEvent is a normalized gateway callback: one success flag instead of
// the provider's status vocabulary.
type PaymentEvent struct {
	BookingID string
	PaymentID string
	Succeeded bool
	Reason    string
}
