package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"glowbook/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// PaymentGateway mints redirect-based payment links for bookings.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req models.PaymentLinkRequest) (*models.PaymentLink, error)
}

// StripeGateway implements PaymentGateway on Stripe Checkout sessions. Every
// request is bounded by the configured timeout; this call sits on the
// user-facing request path.
type StripeGateway struct {
	api        *client.API
	successURL string
	cancelURL  string
	currency   string
	logger     *zap.Logger
}

// NewStripeGateway constructs the gateway with its own timeout-bounded HTTP
// client.
func NewStripeGateway(apiKey, successURL, cancelURL, currency string, timeout time.Duration, logger *zap.Logger) *StripeGateway {
	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return &StripeGateway{
		api:        client.New(apiKey, backends),
		successURL: successURL,
		cancelURL:  cancelURL,
		currency:   currency,
		logger:     logger,
	}
}

// CreatePaymentLink creates a Checkout session for the booking amount and
// returns the normalized link. Provider and transport failures come back as
// one gateway error kind carrying the provider's message; a response missing
// the redirect URL or session id is a hard validation failure.
func (g *StripeGateway) CreatePaymentLink(ctx context.Context, req models.PaymentLinkRequest) (*models.PaymentLink, error) {
	if req.Amount <= 0 {
		return nil, newError(CodeInvalidInput, "payment amount must be positive, got %d", req.Amount)
	}
	if req.BookingID == "" {
		return nil, newError(CodeInvalidInput, "missing booking id for payment link")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.BookingID),
		CustomerEmail:     stripe.String(req.Email),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Skincare expert consultation"),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("payer_name", req.Name)
	params.AddMetadata("payer_phone", req.Phone)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			g.logger.Error("gateway rejected payment link request",
				zap.String("bookingID", req.BookingID), zap.String("providerMsg", stripeErr.Msg))
			return nil, wrapError(CodeGateway, err, "payment provider error: %s", stripeErr.Msg)
		}
		return nil, wrapError(CodeGateway, err, "payment provider unreachable")
	}

	link, err := paymentLinkFromSession(sess)
	if err != nil {
		g.logger.Error("gateway returned unusable payment link",
			zap.String("bookingID", req.BookingID), zap.Error(err))
		return nil, err
	}
	return link, nil
}

// paymentLinkFromSession validates the provider response before anything is
// returned to the caller: both the session id (the success indicator) and
// the redirect URL must be present.
func paymentLinkFromSession(sess *stripe.CheckoutSession) (*models.PaymentLink, error) {
	if sess == nil || sess.ID == "" {
		return nil, wrapError(CodeGateway, ErrMalformedGatewayResponse, "provider response missing session id")
	}
	if sess.URL == "" {
		return nil, wrapError(CodeGateway, ErrMalformedGatewayResponse, "provider response missing redirect URL")
	}
	link := &models.PaymentLink{
		RedirectURL:    sess.URL,
		GatewayOrderID: sess.ID,
		ReferenceID:    sess.ClientReferenceID,
	}
	return link, nil
}

// gatewayEvent mirrors the shape of the provider webhook payload.
type gatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentIntent     string `json:"payment_intent"`
			PaymentStatus     string `json:"payment_status"`
		} `json:"object"`
	} `json:"data"`
}

// NormalizeSignedCallback authenticates a gateway webhook before parsing
// it. The signature header proves the provider sent the body; a callback
// that merely looks like a payment event must never advance a booking.
func NormalizeSignedCallback(body []byte, sigHeader, secret string) (*models.PaymentEvent, error) {
	if secret == "" {
		return nil, newError(CodeInternal, "webhook signing secret is not configured")
	}
	// Dispatch is by event type only, so provider API version drift in the
	// payload is tolerated; the signature check is what matters here.
	_, err := webhook.ConstructEventWithOptions(body, sigHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, wrapError(CodeInvalidInput, err, "gateway callback signature verification failed")
	}
	return NormalizeCallback(body)
}

// NormalizeCallback translates a raw gateway webhook body into a
// PaymentEvent. A nil event with nil error means the callback is valid but
// carries nothing to act on yet. Unknown event types and payloads without a
// booking reference are rejected rather than guessed at.
func NormalizeCallback(body []byte) (*models.PaymentEvent, error) {
	var evt gatewayEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, wrapError(CodeInvalidInput, err, "unparseable gateway callback")
	}
	obj := evt.Data.Object
	if obj.ClientReferenceID == "" {
		return nil, newError(CodeInvalidInput, "gateway callback carries no booking reference")
	}

	paymentID := obj.PaymentIntent
	if paymentID == "" {
		paymentID = obj.ID
	}

	switch evt.Type {
	case "checkout.session.completed":
		if obj.PaymentStatus != "paid" {
			// Async payment methods report completion before funds settle;
			// the definitive event arrives later.
			return nil, nil
		}
		return &models.PaymentEvent{
			BookingID: obj.ClientReferenceID,
			PaymentID: paymentID,
			Succeeded: true,
		}, nil
	case "checkout.session.async_payment_succeeded":
		return &models.PaymentEvent{
			BookingID: obj.ClientReferenceID,
			PaymentID: paymentID,
			Succeeded: true,
		}, nil
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		return &models.PaymentEvent{
			BookingID: obj.ClientReferenceID,
			PaymentID: paymentID,
			Succeeded: false,
			Reason:    evt.Type,
		}, nil
	default:
		return nil, newError(CodeInvalidInput, "unsupported gateway event type %q", evt.Type)
	}
}
