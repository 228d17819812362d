package store

import "github.com/cvconnect/interviewsync/internal/model"

// Decision is the outcome of reconciling one server snapshot against a
// possibly pending local update.
type Decision int

const (
	// AdoptServer means the server value wins and any pending update for
	// the entity is cleared.
	AdoptServer Decision = iota

	// KeepLocal means the locally proposed value stays visible and the
	// pending update stays alive for the next refresh.
	KeepLocal
)

// Reconcile decides whether the client should display the server's status
// or a still-pending optimistic value.
//
// With no pending update the server value is adopted unconditionally. With
// one, the server is trusted the moment it reports anything other than the
// pre-transition value: a status at or past the proposal means the action
// was confirmed, and a contradicting branch (user proposed accepted, server
// says declined or cancelled) means the server already resolved the entity
// differently and is authoritative. Only the stale pre-transition value is
// treated as propagation lag, because reverting a visible "Accepted" back
// to "Pending" while the backend catches up reads as a lost action.
func Reconcile(serverStatus model.InterviewStatus, pending *model.PendingUpdate) Decision {
	if pending == nil {
		return AdoptServer
	}
	if serverStatus == model.PreTransitionOf(pending.ProposedStatus) {
		return KeepLocal
	}
	return AdoptServer
}
