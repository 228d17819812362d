package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cvconnect/interviewsync/internal/api"
	"github.com/cvconnect/interviewsync/internal/channel"
	"github.com/cvconnect/interviewsync/internal/model"
	"github.com/cvconnect/interviewsync/internal/notify"
	"github.com/cvconnect/interviewsync/internal/store"
)

// fakeAPI is a scriptable REST boundary.
type fakeAPI struct {
	mu            sync.Mutex
	interviews    []model.Interview
	notifications []model.Notification
	listErr       error
	submitErr     error
	submitFn      func(interviewID string, response model.InterviewStatus)
	marked        []string
}

func (f *fakeAPI) ListInterviews(ctx context.Context) ([]model.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Interview, len(f.interviews))
	copy(out, f.interviews)
	return out, nil
}

func (f *fakeAPI) SubmitResponse(ctx context.Context, interviewID string, response model.InterviewStatus) error {
	f.mu.Lock()
	fn := f.submitFn
	err := f.submitErr
	f.mu.Unlock()
	if fn != nil {
		fn(interviewID, response)
	}
	return err
}

func (f *fakeAPI) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out, nil
}

func (f *fakeAPI) MarkNotificationRead(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, notificationID)
	return nil
}

func (f *fakeAPI) setInterviews(list ...model.Interview) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interviews = list
}

// fakeConflictLog records deferred-consistency resolutions.
type fakeConflictLog struct {
	mu      sync.Mutex
	records []string
}

func (f *fakeConflictLog) RecordConflict(ctx context.Context, interviewID string, proposed, server model.InterviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, interviewID)
	return nil
}

// deadChannel returns a channel whose transport never connects; engine
// tests here exercise the REST path only.
func deadChannel() *channel.Channel {
	dial := func(ctx context.Context) (channel.Conn, error) {
		return nil, errors.New("no transport in test")
	}
	return channel.New(dial, quietLogger(), channel.WithMaxReconnectAttempts(1))
}

func newTestEngine(t *testing.T, restAPI *fakeAPI, conflicts ConflictLog) (*Engine, *store.InterviewStore, *notify.Aggregator) {
	t.Helper()

	interviews := store.NewInterviewStore(quietLogger())
	notifications := notify.NewAggregator(quietLogger())
	e := NewEngine(restAPI, interviews, notifications, deadChannel(), conflicts, Config{
		Room:          "user:test",
		SubmitTimeout: time.Second,
	}, quietLogger())
	return e, interviews, notifications
}

func TestRespondAppliesOptimisticStateBeforeSubmission(t *testing.T) {
	f := &fakeAPI{}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	e, interviews, _ := newTestEngine(t, f, nil)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	// Capture the visible status at the moment the network call starts.
	var statusAtSubmit model.InterviewStatus
	f.submitFn = func(id string, response model.InterviewStatus) {
		iv, _ := interviews.Get(id)
		statusAtSubmit = iv.Status
	}

	if err := e.Respond(context.Background(), "42", model.StatusAccepted); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if statusAtSubmit != model.StatusAccepted {
		t.Errorf("status at submission time = %s, want accepted (optimistic apply must come first)",
			statusAtSubmit)
	}
}

func TestRespondRejectsNonResponseStatus(t *testing.T) {
	f := &fakeAPI{}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	e, _, _ := newTestEngine(t, f, nil)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	if err := e.Respond(context.Background(), "42", model.StatusConfirmed); err == nil {
		t.Error("expected error for a non accept/decline response")
	}
}

func TestRespondTransientFailureKeepsOptimisticState(t *testing.T) {
	f := &fakeAPI{submitErr: errors.New("network down")}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	e, interviews, _ := newTestEngine(t, f, nil)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	err := e.Respond(context.Background(), "42", model.StatusAccepted)
	if err == nil {
		t.Fatal("expected the transport error to surface to the caller")
	}

	iv, _ := interviews.Get("42")
	if iv.Status != model.StatusAccepted {
		t.Errorf("status = %s, optimistic state must never roll back on transient failure", iv.Status)
	}
	if _, ok := interviews.Pending("42"); !ok {
		t.Error("pending update must survive the failed submission")
	}

	msgs := e.InfoMessages()
	if len(msgs) == 0 {
		t.Error("expected a reassuring info message to be queued")
	}
}

func TestRespondConflictWithStaleServerKeepsLocalDecision(t *testing.T) {
	// The server says "already responded" but its list still reports the
	// stale pre-transition status: propagation lag, not disagreement.
	f := &fakeAPI{submitErr: &api.ConflictError{InterviewID: "42", Message: "already responded"}}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	conflicts := &fakeConflictLog{}
	e, interviews, _ := newTestEngine(t, f, conflicts)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	if err := e.Respond(context.Background(), "42", model.StatusAccepted); err != nil {
		t.Fatalf("conflict should resolve without error, got %v", err)
	}

	iv, _ := interviews.Get("42")
	if iv.Status != model.StatusAccepted {
		t.Errorf("status = %s, want the user's accepted decision kept", iv.Status)
	}

	if len(e.InfoMessages()) == 0 {
		t.Error("expected a non-alarming informational message")
	}

	conflicts.mu.Lock()
	defer conflicts.mu.Unlock()
	if len(conflicts.records) != 1 || conflicts.records[0] != "42" {
		t.Errorf("conflict records = %v, want one entry for interview 42", conflicts.records)
	}
}

func TestRespondConflictWithFailedRefreshRecordsNothing(t *testing.T) {
	// The forced refresh after the conflict fails, so no server state was
	// observed; the local decision stays visible but no deferred-consistency
	// record is written.
	f := &fakeAPI{submitErr: &api.ConflictError{InterviewID: "42", Message: "already responded"}}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	conflicts := &fakeConflictLog{}
	e, interviews, _ := newTestEngine(t, f, conflicts)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	f.mu.Lock()
	f.listErr = errors.New("network down")
	f.mu.Unlock()

	if err := e.Respond(context.Background(), "42", model.StatusAccepted); err != nil {
		t.Fatalf("conflict should resolve without error, got %v", err)
	}

	iv, _ := interviews.Get("42")
	if iv.Status != model.StatusAccepted {
		t.Errorf("status = %s, want the user's accepted decision kept", iv.Status)
	}
	if _, ok := interviews.Pending("42"); !ok {
		t.Error("pending update must survive until a successful refresh")
	}

	conflicts.mu.Lock()
	defer conflicts.mu.Unlock()
	if len(conflicts.records) != 0 {
		t.Errorf("conflict records = %v, want none when no server state was observed", conflicts.records)
	}
}

func TestRespondConflictAdoptsAdvancedServerState(t *testing.T) {
	f := &fakeAPI{submitErr: &api.ConflictError{InterviewID: "42", Message: "already responded"}}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	conflicts := &fakeConflictLog{}
	e, interviews, _ := newTestEngine(t, f, conflicts)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	// By the time the forced refresh runs, the server shows the declined
	// branch: it already processed a different response.
	f.submitFn = func(id string, response model.InterviewStatus) {
		f.setInterviews(model.Interview{ID: "42", Status: model.StatusDeclined})
	}

	if err := e.Respond(context.Background(), "42", model.StatusAccepted); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// Declined is not the pre-transition value, so the server is
	// authoritative and the local accept must not be re-asserted.
	iv, _ := interviews.Get("42")
	if iv.Status != model.StatusDeclined {
		t.Errorf("status = %s, want server's authoritative declined", iv.Status)
	}

	conflicts.mu.Lock()
	defer conflicts.mu.Unlock()
	if len(conflicts.records) != 0 {
		t.Error("no deferred-consistency record expected when the server disagrees authoritatively")
	}
}

func TestLaterRefreshConfirmsAndReleasesPending(t *testing.T) {
	f := &fakeAPI{submitErr: &api.ConflictError{InterviewID: "42", Message: "already responded"}}
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusScheduled})

	e, interviews, _ := newTestEngine(t, f, nil)
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}
	if err := e.Respond(context.Background(), "42", model.StatusAccepted); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// Server catches up.
	f.setInterviews(model.Interview{ID: "42", Status: model.StatusAccepted})
	if err := e.RefreshInterviews(context.Background()); err != nil {
		t.Fatalf("RefreshInterviews: %v", err)
	}

	if _, ok := interviews.Pending("42"); ok {
		t.Error("pending update should clear once the server confirms")
	}
}

func TestMarkNotificationReadIsLocalFirstAndIdempotent(t *testing.T) {
	f := &fakeAPI{}
	e, _, notifications := newTestEngine(t, f, nil)

	notifications.IngestFullRefresh([]model.Notification{
		{ID: "n1", Type: model.NotificationOther, Read: false, CreatedAt: time.Now()},
	})

	e.MarkNotificationRead(context.Background(), "n1")
	e.MarkNotificationRead(context.Background(), "n1")

	if notifications.UnreadCount() != 0 {
		t.Errorf("unread = %d, want 0", notifications.UnreadCount())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.marked) != 1 {
		t.Errorf("server acknowledgements = %d, want 1 (second mark is a local no-op)", len(f.marked))
	}
}

func TestRefreshNotificationsFillsAggregator(t *testing.T) {
	f := &fakeAPI{notifications: []model.Notification{
		{ID: "n1", Type: model.NotificationInterviewScheduled, CreatedAt: time.Now()},
		{ID: "n2", Type: model.NotificationOther, Read: true, CreatedAt: time.Now()},
	}}

	e, _, notifications := newTestEngine(t, f, nil)
	if err := e.RefreshNotifications(context.Background()); err != nil {
		t.Fatalf("RefreshNotifications: %v", err)
	}

	if len(notifications.All()) != 2 {
		t.Errorf("working set = %d, want 2", len(notifications.All()))
	}
	if notifications.UnreadCount() != 1 {
		t.Errorf("unread = %d, want 1", notifications.UnreadCount())
	}
}
