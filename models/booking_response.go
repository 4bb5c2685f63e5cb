package models

import "time"

// ExpertSummary is the public slice of an expert embedded in booking reads.
type ExpertSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Avatar string `json:"avatar,omitempty"`
}

// BookingDetail is the read projection for a single booking. It carries the
// caller's own payer snapshot but never another user's.
type BookingDetail struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Expert     ExpertSummary `json:"expert"`
	Date       string        `json:"date,omitempty"`
	Start      int           `json:"start,omitempty"`
	End        int           `json:"end,omitempty"`
	Duration   int           `json:"duration"`
	Status     BookingStatus `json:"status"`
	Amount     int64         `json:"amount"`
	PaymentURL string        `json:"paymentUrl,omitempty"`
	PaidAt     *time.Time    `json:"paidAt,omitempty"`
	Payer      PayerSnapshot `json:"payer"`
	MeetLink   string        `json:"meetLink,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}
