package models

import (
	"strings"
	"time"
)

// DayWindow is a working window in minutes from midnight. A zero window
// means the day is closed.
type DayWindow struct {
	Start int `bson:"start" json:"start"`
	End   int `bson:"end" json:"end"`
}

// IsZero reports whether the window is empty (closed day).
func (w DayWindow) IsZero() bool {
	return w.End <= w.Start
}

// AvailabilityException overrides the weekly template for a single date:
// either the day is closed outright or it gets a custom window.
type AvailabilityException struct {
	Date   string `bson:"date" json:"date"` // "2006-01-02"
	Closed bool   `bson:"closed" json:"closed"`
	Start  int    `bson:"start,omitempty" json:"start,omitempty"`
	End    int    `bson:"end,omitempty" json:"end,omitempty"`
}

// Expert is the bookable skincare expert profile. This core only reads it;
// the expert CRUD surface owns the document.
type Expert struct {
	ID            string                  `bson:"id" json:"id"`
	Name          string                  `bson:"name" json:"name"`
	Type          string                  `bson:"type" json:"type"` // e.g. "dermatologist", "aesthetician"
	Avatar        string                  `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Active        bool                    `bson:"active" json:"active"`
	RatePerMinute int64                   `bson:"rate_per_minute" json:"ratePerMinute"` // paise
	WeeklyHours   map[string]DayWindow    `bson:"weekly_hours" json:"weeklyHours"`      // keyed by lowercase weekday name
	Exceptions    []AvailabilityException `bson:"exceptions,omitempty" json:"exceptions,omitempty"`
}

// WindowOn resolves the working window for a date. A date exception
// overrides the weekday default; a closed exception (or a missing weekday
// entry) yields no window.
func (e *Expert) WindowOn(day time.Time) (DayWindow, bool) {
	dateStr := day.Format("2006-01-02")
	for _, ex := range e.Exceptions {
		if ex.Date != dateStr {
			continue
		}
		if ex.Closed {
			return DayWindow{}, false
		}
		w := DayWindow{Start: ex.Start, End: ex.End}
		return w, !w.IsZero()
	}
	w, ok := e.WeeklyHours[strings.ToLower(day.Weekday().String())]
	if !ok || w.IsZero() {
		return DayWindow{}, false
	}
	return w, true
}
