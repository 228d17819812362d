package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultFetchTimeout is the maximum time allowed for a single fetch.
const defaultFetchTimeout = 30 * time.Second

// FetchFunc performs one refresh against the REST boundary.
type FetchFunc func(ctx context.Context) error

// entry holds one registered refresh kind and its recurring schedule.
type entry struct {
	kind    string
	period  time.Duration
	fn      FetchFunc
	trigger chan struct{}
	stop    chan struct{}
}

// Scheduler coordinates periodic and focus-triggered refreshes. Each kind
// runs on its own goroutine that executes fetches serially, so a focus
// trigger can never overlap an in-flight fetch of the same kind; triggers
// arriving while a fetch runs are dropped, not queued.
type Scheduler struct {
	mu           gosync.Mutex
	entries      map[string]*entry
	fetchTimeout time.Duration
	log          *logrus.Logger
}

// NewScheduler creates an empty scheduler. A nil logger falls back to the
// logrus standard logger; a non-positive timeout falls back to the default.
func NewScheduler(log *logrus.Logger, fetchTimeout time.Duration) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Scheduler{
		entries:      make(map[string]*entry),
		fetchTimeout: fetchTimeout,
		log:          log,
	}
}

// ScheduleInterval registers a recurring fetch for kind, replacing any
// existing schedule of the same kind so timers never stack. The first fetch
// runs immediately.
func (s *Scheduler) ScheduleInterval(kind string, period time.Duration, fn FetchFunc) {
	if period <= 0 {
		period = time.Minute
	}

	e := &entry{
		kind:    kind,
		period:  period,
		fn:      fn,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}

	s.mu.Lock()
	if old, ok := s.entries[kind]; ok {
		close(old.stop)
	}
	s.entries[kind] = e
	s.mu.Unlock()

	go s.loop(e)
}

// TriggerOnFocus requests an immediate out-of-band fetch of kind, e.g. when
// the owning screen becomes active. Dropped silently when the kind is
// unknown or a fetch is already pending.
func (s *Scheduler) TriggerOnFocus(kind string) {
	s.mu.Lock()
	e, ok := s.entries[kind]
	s.mu.Unlock()
	if !ok {
		return
	}

	select {
	case e.trigger <- struct{}{}:
	default:
		// A fetch is already pending; skip to stay bounded.
	}
}

// Cancel deterministically stops the schedule for kind.
func (s *Scheduler) Cancel(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[kind]; ok {
		close(e.stop)
		delete(s.entries, kind)
	}
}

// Stop cancels every schedule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for kind, e := range s.entries {
		close(e.stop)
		delete(s.entries, kind)
	}
}

// loop runs the recurring fetch for a single kind.
func (s *Scheduler) loop(e *entry) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	// Initial fetch immediately so the UI has data at startup.
	s.runOnce(e)

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			s.runOnce(e)
		case <-e.trigger:
			s.runOnce(e)
		}
	}
}

// runOnce executes one fetch with a bounded timeout. A failure is logged
// and the schedule carries on; it never cancels the timer or propagates.
func (s *Scheduler) runOnce(e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	if err := e.fn(ctx); err != nil {
		s.log.WithError(err).WithField("kind", e.kind).Warn("scheduled refresh failed")
	}
}
