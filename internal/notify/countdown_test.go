package notify

import (
	"testing"
	"time"
)

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"ninety minutes", now.Add(90 * time.Minute), "1h 30m remaining"},
		{"five minutes past", now.Add(-5 * time.Minute), TimePassed},
		{"exactly now", now, TimePassed},
		{"under a minute", now.Add(45 * time.Second), "0m remaining"},
		{"whole hours", now.Add(2 * time.Hour), "2h 0m remaining"},
		{"days hours minutes", now.Add(50*time.Hour + 4*time.Minute), "2d 2h 4m remaining"},
		{"floor not round", now.Add(119 * time.Minute), "1h 59m remaining"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeRemaining(tt.at, now); got != tt.want {
				t.Errorf("TimeRemaining(%v) = %q, want %q", tt.at.Sub(now), got, tt.want)
			}
		})
	}
}

func TestShouldAlertBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exactly 24h ahead", now.Add(24 * time.Hour), true},
		{"just over 24h ahead", now.Add(24*time.Hour + time.Millisecond), false},
		{"just past", now.Add(-time.Millisecond), false},
		{"exactly now", now, false},
		{"one minute ahead", now.Add(time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAlert(tt.at, now); got != tt.want {
				t.Errorf("ShouldAlert(%v) = %v, want %v", tt.at.Sub(now), got, tt.want)
			}
		})
	}
}
