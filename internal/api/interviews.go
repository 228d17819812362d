package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cvconnect/interviewsync/internal/model"
)

// alreadyRespondedFragment is the known server wording for a duplicate
// interview response. The server's error schema carries no stable code for
// this condition yet, so the mapping to ConflictError lives here and
// nowhere else.
const alreadyRespondedFragment = "already responded"

// ListInterviews retrieves the full interview list for the current user.
// The result carries full-replace semantics for the client cache.
func (c *Client) ListInterviews(ctx context.Context) ([]model.Interview, error) {
	var resp interviewListResponse
	if err := c.Get(ctx, "/api/v1/interviews", &resp); err != nil {
		return nil, fmt.Errorf("fetching interviews: %w", err)
	}

	interviews := make([]model.Interview, 0, len(resp.Interviews))
	for _, dto := range resp.Interviews {
		interviews = append(interviews, dto.toModel())
	}
	return interviews, nil
}

// SubmitResponse posts the user's accept or decline decision for an
// interview. A duplicate submission is returned as a *ConflictError.
func (c *Client) SubmitResponse(
	ctx context.Context,
	interviewID string,
	response model.InterviewStatus,
) error {
	body := map[string]string{"response": string(response)}
	path := fmt.Sprintf("/api/v1/interviews/%s/response", url.PathEscape(interviewID))

	err := c.Post(ctx, path, body, nil)
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusConflict ||
			strings.Contains(strings.ToLower(statusErr.Message), alreadyRespondedFragment) {
			return &ConflictError{
				InterviewID: interviewID,
				Message:     statusErr.Message,
			}
		}
	}

	return fmt.Errorf("submitting response for interview %s: %w", interviewID, err)
}

// ListNotifications retrieves the most recent notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit < 1 {
		limit = 50
	}

	var resp notificationListResponse
	path := "/api/v1/notifications?limit=" + strconv.Itoa(limit)
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	notifications := make([]model.Notification, 0, len(resp.Notifications))
	for _, dto := range resp.Notifications {
		notifications = append(notifications, dto.toModel())
	}
	return notifications, nil
}

// MarkNotificationRead acknowledges a notification server-side. The server
// treats repeated acknowledgements as idempotent.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	path := fmt.Sprintf("/api/v1/notifications/%s/read", url.PathEscape(notificationID))
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", notificationID, err)
	}
	return nil
}
