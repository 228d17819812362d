package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvconnect/interviewsync/internal/model"
	"github.com/cvconnect/interviewsync/tests/testutil"
)

func TestAppendAndRecentHistory(t *testing.T) {
	a := testutil.NewTestArchive(t)
	ctx := context.Background()

	scheduled := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	older := model.Notification{
		ID:        "n-1",
		Type:      model.NotificationOther,
		Message:   "profile viewed",
		CreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	newer := model.Notification{
		ID:              "n-2",
		Type:            model.NotificationInterviewScheduled,
		RelatedEntityID: "42",
		Message:         "interview scheduled",
		Read:            true,
		CreatedAt:       time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		ScheduledDate:   &scheduled,
	}

	require.NoError(t, a.AppendNotifications(ctx, []model.Notification{older, newer}))

	got, err := a.RecentHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "n-2", got[0].ID)
	assert.Equal(t, "n-1", got[1].ID)
	assert.True(t, got[0].Read)
	require.NotNil(t, got[0].ScheduledDate)
	assert.True(t, got[0].ScheduledDate.Equal(scheduled))
	assert.Nil(t, got[1].ScheduledDate)
}

func TestAppendReplacesExistingRow(t *testing.T) {
	a := testutil.NewTestArchive(t)
	ctx := context.Background()

	n := model.Notification{
		ID:        "n-1",
		Type:      model.NotificationInterviewReminder,
		Message:   "starts soon",
		CreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.AppendNotifications(ctx, []model.Notification{n}))

	n.Read = true
	require.NoError(t, a.AppendNotifications(ctx, []model.Notification{n}))

	got, err := a.RecentHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Read)
}

func TestAppendNothing(t *testing.T) {
	a := testutil.NewTestArchive(t)
	require.NoError(t, a.AppendNotifications(context.Background(), nil))
}

func TestRecordConflict(t *testing.T) {
	a := testutil.NewTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.RecordConflict(ctx, "42", model.StatusAccepted, model.StatusScheduled))
	require.NoError(t, a.RecordConflict(ctx, "42", model.StatusAccepted, model.StatusScheduled))
}
