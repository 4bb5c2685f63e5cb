package booking

import "glowbook/models"

// Quote computes the booking amount in minor currency units from the
// expert's rate card. Integer arithmetic only; the client never supplies a
// price.
func Quote(expert *models.Expert, duration int) (int64, error) {
	if duration <= 0 {
		return 0, newError(CodeInvalidInput, "duration must be positive, got %d", duration)
	}
	if expert.RatePerMinute <= 0 {
		return 0, newError(CodeInternal, "expert %s has no usable rate card", expert.ID)
	}
	return expert.RatePerMinute * int64(duration), nil
}
