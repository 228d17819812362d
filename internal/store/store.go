package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cvconnect/interviewsync/internal/model"
)

// InterviewStore holds the client-side view of all interviews: the last
// known server snapshot overlaid with unconfirmed optimistic updates. It is
// the single owner of interview state; all mutation goes through its
// methods, and every method runs to completion under one mutex, so readers
// never observe a partially applied refresh.
type InterviewStore struct {
	mu         sync.RWMutex
	interviews map[string]model.Interview
	pending    map[string]model.PendingUpdate
	log        *logrus.Logger
}

// NewInterviewStore creates an empty store. A nil logger falls back to the
// logrus standard logger.
func NewInterviewStore(log *logrus.Logger) *InterviewStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InterviewStore{
		interviews: make(map[string]model.Interview),
		pending:    make(map[string]model.PendingUpdate),
		log:        log,
	}
}

// ReplaceAll installs a full server snapshot, reconciling each incoming
// entity against any pending optimistic update. Entities absent from the
// snapshot are dropped together with their pending updates; the server list
// is the only thing that removes interviews from the cache.
func (s *InterviewStore) ReplaceAll(serverList []model.Interview) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.Interview, len(serverList))
	nextPending := make(map[string]model.PendingUpdate)

	for _, iv := range serverList {
		p, hasPending := s.pending[iv.ID]

		var pendingRef *model.PendingUpdate
		if hasPending {
			pendingRef = &p
		}

		switch Reconcile(iv.Status, pendingRef) {
		case KeepLocal:
			// Server has not observed the user's action yet; keep showing
			// the proposed value and carry the pending update forward.
			iv.Status = p.ProposedStatus
			next[iv.ID] = iv
			nextPending[iv.ID] = p
		case AdoptServer:
			next[iv.ID] = iv
		}
	}

	s.interviews = next
	s.pending = nextPending
}

// ApplyOptimistic immediately mutates the visible status of an interview
// and records a pending update, overwriting any prior pending update for
// the same interview. It completes synchronously so the caller can issue
// the network submission afterwards with the UI already reflecting the
// user's intent.
func (s *InterviewStore) ApplyOptimistic(entityID string, proposed model.InterviewStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, ok := s.interviews[entityID]
	if !ok {
		return fmt.Errorf("interview %s not in cache", entityID)
	}

	// An unconfirmed prior decision must stay revisable: validate against
	// the status the interview held before the overlay, so accept followed
	// by decline overwrites the pending update instead of being rejected
	// as accepted -> declined.
	baseline := iv.Status
	if p, hasPending := s.pending[entityID]; hasPending {
		baseline = model.PreTransitionOf(p.ProposedStatus)
	}
	if !baseline.CanTransitionTo(proposed) {
		return fmt.Errorf("interview %s: invalid transition %s -> %s",
			entityID, baseline, proposed)
	}

	iv.Status = proposed
	s.interviews[entityID] = iv
	s.pending[entityID] = model.PendingUpdate{
		EntityID:       entityID,
		ProposedStatus: proposed,
		CreatedAt:      time.Now(),
	}
	return nil
}

// ForceApply re-asserts a locally proposed status after the server reported
// a duplicate response but a forced refresh still returned the stale
// pre-transition value. Server propagation is treated as delayed rather
// than wrong; the pending update stays alive so a later refresh can confirm
// and clear it. Logged as a deferred-consistency condition.
func (s *InterviewStore) ForceApply(entityID string, proposed model.InterviewStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, ok := s.interviews[entityID]
	if !ok {
		return
	}
	if iv.Status == proposed {
		return
	}

	s.log.WithFields(logrus.Fields{
		"interview": entityID,
		"server":    iv.Status,
		"local":     proposed,
	}).Warn("deferred consistency: keeping local response ahead of server")

	iv.Status = proposed
	s.interviews[entityID] = iv
	s.pending[entityID] = model.PendingUpdate{
		EntityID:       entityID,
		ProposedStatus: proposed,
		CreatedAt:      time.Now(),
	}
}

// Get returns the reconciled view of one interview.
func (s *InterviewStore) Get(entityID string) (model.Interview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iv, ok := s.interviews[entityID]
	return iv, ok
}

// GetAll returns the reconciled view of every cached interview, ordered by
// ascending scheduled date.
func (s *InterviewStore) GetAll() []model.Interview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Interview, 0, len(s.interviews))
	for _, iv := range s.interviews {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out
}

// Pending returns the pending optimistic update for an interview, if any.
func (s *InterviewStore) Pending(entityID string) (model.PendingUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[entityID]
	return p, ok
}
