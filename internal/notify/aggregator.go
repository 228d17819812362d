// Package notify converts push events and periodic refreshes into a
// bounded, de-duplicated, prioritized list of user-facing notifications.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cvconnect/interviewsync/internal/model"
)

// staleAfter is how long non-interview notifications stay eligible for the
// dashboard subset.
const staleAfter = 7 * 24 * time.Hour

// DefaultDashboardLimit is the number of entries the compact dashboard
// subset is truncated to.
const DefaultDashboardLimit = 2

// DefaultWorkingSetCap bounds the in-memory notification list.
const DefaultWorkingSetCap = 50

// EvictFunc receives notifications dropped from the working set when the
// cap is exceeded, oldest first.
type EvictFunc func(evicted []model.Notification)

// Aggregator maintains the in-memory notification working set. The list is
// kept newest-first; lookups go through a keyed index so replace-by-id does
// not rescan the slice.
type Aggregator struct {
	mu     sync.RWMutex
	list   []model.Notification
	index  map[string]int
	unread int

	cap            int
	dashboardLimit int
	evict          EvictFunc
	log            *logrus.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCap overrides the working-set cap.
func WithCap(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.cap = n
		}
	}
}

// WithDashboardLimit overrides the dashboard subset size.
func WithDashboardLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.dashboardLimit = n
		}
	}
}

// WithEvictFunc registers a callback for notifications dropped beyond the
// cap, typically backed by the local archive.
func WithEvictFunc(fn EvictFunc) Option {
	return func(a *Aggregator) {
		a.evict = fn
	}
}

// NewAggregator creates an empty aggregator. A nil logger falls back to the
// logrus standard logger.
func NewAggregator(log *logrus.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &Aggregator{
		index:          make(map[string]int),
		cap:            DefaultWorkingSetCap,
		dashboardLimit: DefaultDashboardLimit,
		log:            log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IngestPushEvent merges one pushed notification into the working set:
// replace-by-id when already present, otherwise prepend as the newest
// entry. A replace never reverses a read flag the user has already set.
func (a *Aggregator) IngestPushEvent(n model.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i, ok := a.index[n.ID]; ok {
		wasRead := a.list[i].Read
		if wasRead {
			n.Read = true
		}
		a.applyUnreadDelta(wasRead, n.Read)
		a.list[i] = n
		return
	}

	a.list = append([]model.Notification{n}, a.list...)
	a.reindex()
	if !n.Read {
		a.unread++
	}
	a.enforceCap()
}

// IngestFullRefresh replaces the working set with the server's list,
// recomputing the unread count from scratch.
func (a *Aggregator) IngestFullRefresh(serverList []model.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.list = make([]model.Notification, len(serverList))
	copy(a.list, serverList)
	a.reindex()

	a.unread = 0
	for _, n := range a.list {
		if !n.Read {
			a.unread++
		}
	}
	a.enforceCap()
}

// MarkAsRead flips a notification to read. It is monotonic: marking an
// already-read notification is a no-op, and the unread count never goes
// below zero. Returns whether anything changed.
func (a *Aggregator) MarkAsRead(notificationID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[notificationID]
	if !ok || a.list[i].Read {
		return false
	}

	a.list[i].Read = true
	if a.unread > 0 {
		a.unread--
	}
	return true
}

// UnreadCount returns the number of unread notifications in the working set.
func (a *Aggregator) UnreadCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.unread
}

// All returns a copy of the full working set, newest first.
func (a *Aggregator) All() []model.Notification {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]model.Notification, len(a.list))
	copy(out, a.list)
	return out
}

// ComputeDashboardSubset produces the compact "urgent" view:
//
//   - unread notifications are always kept;
//   - read interview notifications whose scheduled date already passed are
//     dropped (they stay in the full list);
//   - read non-interview notifications older than seven days are dropped;
//   - unread sorts before read; within a read state interview entries come
//     first by ascending scheduled date, the rest by descending creation
//     time; the result is truncated to the dashboard limit.
func (a *Aggregator) ComputeDashboardSubset(now time.Time) []model.Notification {
	a.mu.RLock()
	defer a.mu.RUnlock()

	subset := make([]model.Notification, 0, len(a.list))
	for _, n := range a.list {
		if !n.Read {
			subset = append(subset, n)
			continue
		}
		if n.Type.InterviewRelated() {
			if n.ScheduledDate != nil && !n.ScheduledDate.After(now) {
				continue
			}
			subset = append(subset, n)
			continue
		}
		if now.Sub(n.CreatedAt) <= staleAfter {
			subset = append(subset, n)
		}
	}

	sort.SliceStable(subset, func(i, j int) bool {
		ni, nj := subset[i], subset[j]
		if ni.Read != nj.Read {
			return !ni.Read
		}
		ii, ij := ni.Type.InterviewRelated(), nj.Type.InterviewRelated()
		if ii != ij {
			return ii
		}
		if ii && ni.ScheduledDate != nil && nj.ScheduledDate != nil {
			return ni.ScheduledDate.Before(*nj.ScheduledDate)
		}
		return ni.CreatedAt.After(nj.CreatedAt)
	})

	if len(subset) > a.dashboardLimit {
		subset = subset[:a.dashboardLimit]
	}
	return subset
}

// applyUnreadDelta adjusts the unread counter when a replace changes an
// entry's read state. Caller holds the lock.
func (a *Aggregator) applyUnreadDelta(wasRead, isRead bool) {
	switch {
	case wasRead == isRead:
	case isRead:
		if a.unread > 0 {
			a.unread--
		}
	default:
		a.unread++
	}
}

// enforceCap drops the oldest entries beyond the cap and hands them to the
// evict callback. Caller holds the lock.
func (a *Aggregator) enforceCap() {
	if len(a.list) <= a.cap {
		return
	}

	evicted := make([]model.Notification, len(a.list)-a.cap)
	copy(evicted, a.list[a.cap:])
	a.list = a.list[:a.cap]
	a.reindex()

	// Oldest first for the archive.
	for i, j := 0, len(evicted)-1; i < j; i, j = i+1, j-1 {
		evicted[i], evicted[j] = evicted[j], evicted[i]
	}

	for _, n := range evicted {
		if !n.Read {
			if a.unread > 0 {
				a.unread--
			}
		}
	}

	if a.evict != nil {
		a.evict(evicted)
	}
}

// reindex rebuilds the id index after the list layout changes. Caller holds
// the lock.
func (a *Aggregator) reindex() {
	a.index = make(map[string]int, len(a.list))
	for i, n := range a.list {
		a.index[n.ID] = i
	}
}
