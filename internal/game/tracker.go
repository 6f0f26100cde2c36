package game

// Tracker counts consecutive failed governments.
type Tracker struct {
	Failures int
	Limit    int
}

// RecordFailure increments the count. When it reaches the limit, the tracker
// resets and chaos is reported; the caller must enact the top card.
func (t Tracker) RecordFailure() (Tracker, bool) {
	t.Failures++
	if t.Failures >= t.Limit {
		t.Failures = 0
		return t, true
	}
	return t, false
}

// RecordSuccess resets the count after an elected government.
func (t Tracker) RecordSuccess() Tracker {
	t.Failures = 0
	return t
}
