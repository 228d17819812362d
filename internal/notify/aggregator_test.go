package notify

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"pgregory.net/rapid"

	"github.com/cvconnect/interviewsync/internal/model"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func notif(id string, typ model.NotificationType, read bool, createdAt time.Time) model.Notification {
	return model.Notification{
		ID:        id,
		Type:      typ,
		Message:   "notification " + id,
		Read:      read,
		CreatedAt: createdAt,
	}
}

func interviewNotif(id string, read bool, createdAt, scheduled time.Time) model.Notification {
	n := notif(id, model.NotificationInterviewScheduled, read, createdAt)
	n.RelatedEntityID = "iv-" + id
	n.ScheduledDate = &scheduled
	return n
}

func TestIngestPushPrependsNewest(t *testing.T) {
	a := NewAggregator(quietLogger())
	now := time.Now()

	a.IngestPushEvent(notif("1", model.NotificationOther, false, now))
	a.IngestPushEvent(notif("2", model.NotificationOther, false, now))

	all := a.All()
	if len(all) != 2 || all[0].ID != "2" {
		t.Errorf("expected newest first, got %v", all)
	}
	if a.UnreadCount() != 2 {
		t.Errorf("unread = %d, want 2", a.UnreadCount())
	}
}

func TestIngestPushReplacesByID(t *testing.T) {
	a := NewAggregator(quietLogger())
	now := time.Now()

	a.IngestPushEvent(notif("1", model.NotificationOther, false, now))
	a.MarkAsRead("1")

	updated := notif("1", model.NotificationOther, false, now)
	updated.Message = "updated text"
	a.IngestPushEvent(updated)

	all := a.All()
	if len(all) != 1 {
		t.Fatalf("expected replace-by-id, got %d entries", len(all))
	}
	if all[0].Message != "updated text" {
		t.Errorf("message not replaced: %q", all[0].Message)
	}
	if !all[0].Read {
		t.Error("read flag must never reverse on replace")
	}
	if a.UnreadCount() != 0 {
		t.Errorf("unread = %d, want 0", a.UnreadCount())
	}
}

func TestMarkAsReadMonotonic(t *testing.T) {
	a := NewAggregator(quietLogger())
	a.IngestPushEvent(notif("1", model.NotificationOther, false, time.Now()))

	if !a.MarkAsRead("1") {
		t.Error("first mark should report a change")
	}
	if a.UnreadCount() != 0 {
		t.Errorf("unread = %d, want 0", a.UnreadCount())
	}
	if a.MarkAsRead("1") {
		t.Error("second mark should be a no-op")
	}
	if a.MarkAsRead("missing") {
		t.Error("marking an unknown id should be a no-op")
	}
	if a.UnreadCount() != 0 {
		t.Errorf("unread = %d, want 0 after no-ops", a.UnreadCount())
	}
}

func TestIngestFullRefreshRecountsUnread(t *testing.T) {
	a := NewAggregator(quietLogger())
	now := time.Now()

	a.IngestPushEvent(notif("old", model.NotificationOther, false, now))

	a.IngestFullRefresh([]model.Notification{
		notif("1", model.NotificationOther, true, now),
		notif("2", model.NotificationOther, false, now),
		notif("3", model.NotificationOther, false, now),
	})

	if a.UnreadCount() != 2 {
		t.Errorf("unread = %d, want 2", a.UnreadCount())
	}
	if len(a.All()) != 3 {
		t.Errorf("working set = %d entries, want 3", len(a.All()))
	}
}

func TestDashboardSubsetExcludesPastReadInterview(t *testing.T) {
	a := NewAggregator(quietLogger())
	now := time.Now()

	past := interviewNotif("past", true, now.Add(-2*time.Hour), now.Add(-time.Hour))
	a.IngestPushEvent(past)

	subset := a.ComputeDashboardSubset(now)
	for _, n := range subset {
		if n.ID == "past" {
			t.Error("read interview with past date must not appear in the subset")
		}
	}
	// Still present in the full list.
	if len(a.All()) != 1 {
		t.Error("full list must retain the past notification")
	}
}

func TestDashboardSubsetKeepsUnreadUnconditionally(t *testing.T) {
	a := NewAggregator(quietLogger())
	now := time.Now()

	a.IngestPushEvent(interviewNotif("past-unread", false, now.Add(-2*time.Hour), now.Add(-time.Hour)))

	subset := a.ComputeDashboardSubset(now)
	if len(subset) != 1 || subset[0].ID != "past-unread" {
		t.Errorf("unread notifications are always kept, got %v", subset)
	}
}

func TestDashboardSubsetDropsStaleNonInterview(t *testing.T) {
	a := NewAggregator(quietLogger())
	now := time.Now()

	a.IngestPushEvent(notif("stale", model.NotificationOther, true, now.Add(-8*24*time.Hour)))
	a.IngestPushEvent(notif("fresh", model.NotificationOther, true, now.Add(-time.Hour)))

	subset := a.ComputeDashboardSubset(now)
	if len(subset) != 1 || subset[0].ID != "fresh" {
		t.Errorf("expected only the fresh entry, got %v", subset)
	}
}

func TestDashboardSubsetSortsAndTruncates(t *testing.T) {
	a := NewAggregator(quietLogger(), WithDashboardLimit(2))
	now := time.Now()

	a.IngestPushEvent(notif("read-other", model.NotificationOther, true, now.Add(-time.Hour)))
	a.IngestPushEvent(interviewNotif("soon", false, now.Add(-time.Minute), now.Add(2*time.Hour)))
	a.IngestPushEvent(interviewNotif("later", false, now.Add(-time.Minute), now.Add(5*time.Hour)))
	a.IngestPushEvent(notif("unread-other", model.NotificationOther, false, now))

	subset := a.ComputeDashboardSubset(now)
	if len(subset) != 2 {
		t.Fatalf("subset size = %d, want 2", len(subset))
	}
	// Unread interview notifications lead, ascending by scheduled date.
	if subset[0].ID != "soon" || subset[1].ID != "later" {
		t.Errorf("subset order = [%s %s], want [soon later]", subset[0].ID, subset[1].ID)
	}
}

func TestCapEvictsOldestToCallback(t *testing.T) {
	var evicted []model.Notification
	a := NewAggregator(quietLogger(),
		WithCap(3),
		WithEvictFunc(func(batch []model.Notification) {
			evicted = append(evicted, batch...)
		}),
	)

	now := time.Now()
	for i := 1; i <= 5; i++ {
		a.IngestPushEvent(notif(fmt.Sprintf("%d", i), model.NotificationOther, true, now))
	}

	if len(a.All()) != 3 {
		t.Errorf("working set = %d, want 3", len(a.All()))
	}
	if len(evicted) != 2 {
		t.Fatalf("evicted = %d entries, want 2", len(evicted))
	}
	// Oldest first: ids 1 then 2.
	if evicted[0].ID != "1" || evicted[1].ID != "2" {
		t.Errorf("evicted order = [%s %s], want [1 2]", evicted[0].ID, evicted[1].ID)
	}
}

// TestUnreadCountNeverNegative drives arbitrary ingest/mark sequences and
// checks the unread counter invariants throughout.
func TestUnreadCountNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewAggregator(quietLogger(), WithCap(10))
		now := time.Now()

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			id := rapid.StringMatching(`n-[0-9]`).Draw(t, "id")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				a.IngestPushEvent(notif(id, model.NotificationOther,
					rapid.Bool().Draw(t, "read"), now))
			case 1:
				a.MarkAsRead(id)
			case 2:
				a.MarkAsRead(id)
				a.MarkAsRead(id) // repeated marks must be no-ops
			}

			if a.UnreadCount() < 0 {
				t.Fatalf("unread count went negative")
			}

			want := 0
			for _, n := range a.All() {
				if !n.Read {
					want++
				}
			}
			if got := a.UnreadCount(); got != want {
				t.Fatalf("unread = %d, recount = %d", got, want)
			}
		}
	})
}
