package models

import "time"

// Interval is a half-open [Start, End) span in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// SlotCandidate is a bookable start offered to the client. Start and End
// stay in minutes from midnight for the booking request; From and To are
// the same instants as wall-clock times in the booking timezone.
type SlotCandidate struct {
	Date  string    `json:"-"`
	Start int       `json:"startMinute"`
	End   int       `json:"endMinute"`
	From  time.Time `json:"start"`
	To    time.Time `json:"end"`
}

// DaySlots groups the candidates of one calendar day.
type DaySlots struct {
	Date  string          `json:"date"`
	Slots []SlotCandidate `json:"slots"`
}
