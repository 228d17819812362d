package model

import "time"

// NotificationType classifies a user-facing alert.
type NotificationType string

const (
	NotificationInterviewScheduled NotificationType = "interview_scheduled"
	NotificationInterviewReminder  NotificationType = "interview_reminder"
	NotificationInterviewFeedback  NotificationType = "interview_feedback"
	NotificationInterviewCancelled NotificationType = "interview_cancelled"
	NotificationOther              NotificationType = "other"
)

// InterviewRelated reports whether the type is tied to an interview and its
// scheduled date.
func (t NotificationType) InterviewRelated() bool {
	switch t {
	case NotificationInterviewScheduled,
		NotificationInterviewReminder,
		NotificationInterviewFeedback,
		NotificationInterviewCancelled:
		return true
	}
	return false
}

// Notification is an alert surfaced to the user, derived either from a push
// event or from a full-list refresh.
type Notification struct {
	// ID uniquely identifies this notification.
	ID string `json:"id"`

	// Type classifies the alert for filtering and display.
	Type NotificationType `json:"type"`

	// RelatedEntityID links the notification to the originating interview,
	// empty for non-interview alerts.
	RelatedEntityID string `json:"related_entity_id,omitempty"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification. It only
	// ever transitions false to true.
	Read bool `json:"read"`

	// CreatedAt is when the notification was generated.
	CreatedAt time.Time `json:"created_at"`

	// ScheduledDate carries the related interview's date for interview
	// types, nil otherwise.
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}
