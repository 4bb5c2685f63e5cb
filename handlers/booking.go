package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glowbook/models"
	"glowbook/services/booking"
	"glowbook/utils"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	Svc           booking.BookingService
	WebhookSecret string
	Logger        *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, webhookSecret string, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Svc: svc, WebhookSecret: webhookSecret, Logger: logger}
}

// statusForCode maps service error kinds to HTTP statuses.
func statusForCode(code booking.ErrorCode) int {
	switch code {
	case booking.CodeInvalidInput, booking.CodeSlotTaken:
		return http.StatusBadRequest
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeInvalidTransition:
		return http.StatusConflict
	case booking.CodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *BookingHandler) fail(c *gin.Context, err error) {
	var svcErr *booking.Error
	code := booking.CodeOf(err)
	msg := "something went wrong"
	if errors.As(err, &svcErr) && code != booking.CodeInternal {
		msg = svcErr.Message
	} else {
		h.Logger.Error("booking request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
	}
	utils.JSONError(c, statusForCode(code), msg, string(code))
}

// GetAvailableSlots handles GET /api/experts/:id/slots?duration=30.
func (h *BookingHandler) GetAvailableSlots(c *gin.Context) {
	var query struct {
		Duration int `form:"duration" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "duration query parameter is required", err.Error())
		return
	}

	days, err := h.Svc.AvailableSlots(c.Request.Context(), c.Param("id"), query.Duration)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expertId": c.Param("id"), "days": days})
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, "missing X-User-ID header", "")
		return
	}

	var input struct {
		ExpertID string               `json:"expertId" binding:"required"`
		Duration int                  `json:"duration" binding:"required"`
		Payer    models.PayerSnapshot `json:"payer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid booking payload", err.Error())
		return
	}

	b, err := h.Svc.Initiate(c.Request.Context(), userID, input.ExpertID, input.Duration, input.Payer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// AttachPayment handles POST /api/bookings/:id/payment.
func (h *BookingHandler) AttachPayment(c *gin.Context) {
	var input struct {
		Date  string `json:"date" binding:"required"`
		Start *int   `json:"start" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid payment payload", err.Error())
		return
	}

	b, err := h.Svc.AttachPayment(c.Request.Context(), c.Param("id"), input.Date, *input.Start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookingId":  b.ID,
		"status":     b.Status,
		"paymentUrl": b.PaymentURL,
		"amount":     b.Amount,
	})
}

// PaymentCallback handles POST /api/payments/callback, the gateway webhook.
// The signed Stripe-Signature header is required; unknown events are
// rejected; recognized-but-premature ones are acked so the gateway stops
// retrying.
func (h *BookingHandler) PaymentCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "could not read callback body", err.Error())
		return
	}

	event, err := booking.NormalizeSignedCallback(body, c.GetHeader("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		h.Logger.Warn("rejected gateway callback", zap.Error(err))
		h.fail(c, err)
		return
	}
	if event == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if event.Succeeded {
		_, err = h.Svc.Confirm(c.Request.Context(), event.BookingID, event.PaymentID)
	} else {
		_, err = h.Svc.Fail(c.Request.Context(), event.BookingID, event.Reason)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// GetBooking handles GET /api/bookings/:id. Callers only see their own
// bookings.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, "missing X-User-ID header", "")
		return
	}

	detail, err := h.Svc.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if detail.UserID != userID {
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
		return
	}
	c.JSON(http.StatusOK, detail)
}
