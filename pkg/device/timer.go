package device

import "time"

// Timer tracks one periodic task. It is due once Interval has elapsed since it
// last fired. Times should carry a monotonic reading.
type Timer struct {
	Interval time.Duration
	Last     time.Time
}

// Due reports whether the task should run at now.
func (t *Timer) Due(now time.Time) bool {
	return now.Sub(t.Last) >= t.Interval
}

// Fire records that the task ran at now.
func (t *Timer) Fire(now time.Time) {
	t.Last = now
}
