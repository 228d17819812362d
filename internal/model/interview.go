package model

import "time"

// InterviewStatus is the lifecycle state of an interview as understood by
// both the server and the client cache.
type InterviewStatus string

const (
	StatusScheduled  InterviewStatus = "scheduled"
	StatusAccepted   InterviewStatus = "accepted"
	StatusDeclined   InterviewStatus = "declined"
	StatusConfirmed  InterviewStatus = "confirmed"
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
	StatusCancelled  InterviewStatus = "cancelled"
)

// transitions maps each status to the statuses reachable from it.
var transitions = map[InterviewStatus][]InterviewStatus{
	StatusScheduled:  {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// progressRank orders the forward branch of the lifecycle. Statuses not in
// this map (declined, cancelled) sit on terminal side branches and have no
// forward ordering relative to the accept path.
var progressRank = map[InterviewStatus]int{
	StatusScheduled:  0,
	StatusAccepted:   1,
	StatusConfirmed:  2,
	StatusInProgress: 3,
	StatusCompleted:  4,
}

// CanTransitionTo reports whether moving from s to target is a valid
// lifecycle transition.
func (s InterviewStatus) CanTransitionTo(target InterviewStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s InterviewStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// AtOrPast reports whether s has reached or moved beyond target on the
// forward branch of the lifecycle. It is false when either status sits on a
// terminal side branch, since those carry no forward ordering.
func (s InterviewStatus) AtOrPast(target InterviewStatus) bool {
	sr, ok := progressRank[s]
	if !ok {
		return false
	}
	tr, ok := progressRank[target]
	if !ok {
		return false
	}
	return sr >= tr
}

// PreTransitionOf returns the status an interview held immediately before
// the given user-proposed status. Accept and decline are the only
// user-initiated proposals, and both originate from scheduled; any other
// status is never user-proposed and maps to itself.
func PreTransitionOf(proposed InterviewStatus) InterviewStatus {
	switch proposed {
	case StatusAccepted, StatusDeclined:
		return StatusScheduled
	}
	return proposed
}

// Interview is one scheduled interview between a company-side actor and a
// candidate, mirrored into the client cache from the server.
type Interview struct {
	// ID is the stable server-assigned identifier.
	ID string `json:"id"`

	// Status is the lifecycle state currently displayed to the user. This
	// may transiently run ahead of the server's value while an optimistic
	// update is pending.
	Status InterviewStatus `json:"status"`

	// ScheduledDate is when the interview takes place.
	ScheduledDate time.Time `json:"scheduled_date"`

	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`

	// MeetingLink is the call URL, empty until the server assigns one.
	MeetingLink string `json:"meeting_link,omitempty"`
}

// PendingUpdate records a client-side optimistic status change that the
// server has not yet confirmed. At most one exists per interview; a newer
// proposal for the same interview overwrites the prior one.
type PendingUpdate struct {
	EntityID       string          `json:"entity_id"`
	ProposedStatus InterviewStatus `json:"proposed_status"`
	CreatedAt      time.Time       `json:"created_at"`
}
