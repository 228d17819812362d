package api

import (
	"time"

	"github.com/cvconnect/interviewsync/internal/model"
)

// interviewDTO is the wire shape of an interview snapshot.
type interviewDTO struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	MeetingLink     string    `json:"meeting_link"`
}

func (d interviewDTO) toModel() model.Interview {
	return model.Interview{
		ID:              d.ID,
		Status:          model.InterviewStatus(d.Status),
		ScheduledDate:   d.ScheduledDate,
		Title:           d.Title,
		Description:     d.Description,
		DurationMinutes: d.DurationMinutes,
		MeetingLink:     d.MeetingLink,
	}
}

// notificationDTO is the wire shape of a notification snapshot.
type notificationDTO struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	RelatedEntityID string     `json:"related_entity_id"`
	Message         string     `json:"message"`
	Read            bool       `json:"read"`
	CreatedAt       time.Time  `json:"created_at"`
	ScheduledDate   *time.Time `json:"scheduled_date"`
}

func (d notificationDTO) toModel() model.Notification {
	return model.Notification{
		ID:              d.ID,
		Type:            model.NotificationType(d.Type),
		RelatedEntityID: d.RelatedEntityID,
		Message:         d.Message,
		Read:            d.Read,
		CreatedAt:       d.CreatedAt,
		ScheduledDate:   d.ScheduledDate,
	}
}

// interviewListResponse wraps GET /interviews.
type interviewListResponse struct {
	Interviews []interviewDTO `json:"interviews"`
}

// notificationListResponse wraps GET /notifications.
type notificationListResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}
