package notify

import (
	"fmt"
	"time"
)

// TimePassed is the sentinel returned by TimeRemaining once the scheduled
// moment is no longer in the future.
const TimePassed = "Time has passed"

// alertWindow is how far ahead of an interview ShouldAlert starts firing.
const alertWindow = 24 * time.Hour

// TimeRemaining renders a countdown to scheduledDate as seen from now,
// e.g. "2d 4h 10m remaining" or "1h 30m remaining". Units are computed by
// floor division; a zero-day countdown omits the day component. Anything
// not strictly in the future yields TimePassed.
func TimeRemaining(scheduledDate, now time.Time) string {
	diff := scheduledDate.Sub(now)
	if diff <= 0 {
		return TimePassed
	}

	days := int(diff / (24 * time.Hour))
	hours := int(diff % (24 * time.Hour) / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm remaining", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	}
	return fmt.Sprintf("%dm remaining", minutes)
}

// ShouldAlert reports whether scheduledDate falls within the upcoming alert
// window: strictly in the future and at most 24 hours away.
func ShouldAlert(scheduledDate, now time.Time) bool {
	diff := scheduledDate.Sub(now)
	return diff > 0 && diff <= alertWindow
}
