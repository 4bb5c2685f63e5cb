package booking

import (
	"context"
	"sort"
	"time"

	"glowbook/models"

	"go.uber.org/zap"
)

// AvailableSlots computes the bookable start times for an expert over the
// configured horizon: the weekly working window (or its date exception)
// minus the intervals occupied by confirmed bookings and live pending holds,
// swept at the slot granularity.
func (s *DefaultBookingService) AvailableSlots(ctx context.Context, expertID string, duration int) ([]models.DaySlots, error) {
	if expertID == "" {
		return nil, newError(CodeInvalidInput, "missing expert id")
	}
	if err := s.validateDuration(duration); err != nil {
		return nil, err
	}

	expert, err := s.getActiveExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	cutoff := s.holdCutoff(now)
	dayZero := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location())

	var days []models.DaySlots
	for i := 0; i < s.Horizon; i++ {
		day := dayZero.AddDate(0, 0, i)
		window, open := expert.WindowOn(day)
		if !open {
			continue
		}
		dateStr := day.Format("2006-01-02")

		occupied, err := s.Repo.ActiveForExpertDate(ctx, expertID, dateStr, cutoff)
		if err != nil {
			s.Logger.Error("failed to load occupied intervals",
				zap.String("expertID", expertID), zap.String("date", dateStr), zap.Error(err))
			return nil, wrapError(CodeInternal, err, "could not compute availability for %s", dateStr)
		}

		free := subtractOccupied(window, occupied)
		slots := sweepCandidates(free, duration, s.Granularity, day, now)
		if len(slots) > 0 {
			days = append(days, models.DaySlots{Date: dateStr, Slots: slots})
		}
	}
	return days, nil
}

// subtractOccupied removes the occupied intervals from the working window,
// returning the free sub-intervals in order.
func subtractOccupied(window models.DayWindow, occupied []models.Booking) []models.Interval {
	intervals := make([]models.Interval, 0, len(occupied))
	for _, b := range occupied {
		if b.Overlaps(window.Start, window.End) {
			intervals = append(intervals, models.Interval{Start: b.Start, End: b.End})
		}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	var free []models.Interval
	cursor := window.Start
	for _, iv := range intervals {
		if iv.Start > cursor {
			free = append(free, models.Interval{Start: cursor, End: min(iv.Start, window.End)})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
		if cursor >= window.End {
			return free
		}
	}
	if cursor < window.End {
		free = append(free, models.Interval{Start: cursor, End: window.End})
	}
	return free
}

// sweepCandidates slides a window of the requested duration across each free
// interval at the granularity step. Sub-duration fragments emit nothing, and
// same-day starts already in the past are dropped.
func sweepCandidates(free []models.Interval, duration, granularity int, day, now time.Time) []models.SlotCandidate {
	var out []models.SlotCandidate
	for _, iv := range free {
		start := alignUp(iv.Start, granularity)
		for ; start+duration <= iv.End; start += granularity {
			from := day.Add(time.Duration(start) * time.Minute)
			if !from.After(now) {
				continue
			}
			out = append(out, models.SlotCandidate{
				Date:  day.Format("2006-01-02"),
				Start: start,
				End:   start + duration,
				From:  from,
				To:    from.Add(time.Duration(duration) * time.Minute),
			})
		}
	}
	return out
}

// alignUp rounds v up to the next multiple of step.
func alignUp(v, step int) int {
	if rem := v % step; rem != 0 {
		return v + step - rem
	}
	return v
}
