// Package sync orchestrates the interview state synchronization engine: it
// feeds server data from the REST boundary and the push channel into the
// optimistic store and the notification aggregator, and resolves conflicts
// between the user's local decisions and server-confirmed state.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cvconnect/interviewsync/internal/api"
	"github.com/cvconnect/interviewsync/internal/channel"
	"github.com/cvconnect/interviewsync/internal/model"
	"github.com/cvconnect/interviewsync/internal/notify"
	"github.com/cvconnect/interviewsync/internal/store"
)

// Refresh kinds registered with the scheduler.
const (
	KindInterviews    = "interviews"
	KindNotifications = "notifications"
)

// API is the REST boundary the engine fetches from and submits to.
type API interface {
	ListInterviews(ctx context.Context) ([]model.Interview, error)
	SubmitResponse(ctx context.Context, interviewID string, response model.InterviewStatus) error
	ListNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

// ConflictLog records deferred-consistency resolutions for later
// inspection. Satisfied by the local archive; may be nil.
type ConflictLog interface {
	RecordConflict(ctx context.Context, interviewID string, proposed, server model.InterviewStatus) error
}

// Config carries the engine's cadence and scoping settings.
type Config struct {
	// Room is the user-scoped push room to join.
	Room string

	// InterviewPoll is the interview list refresh period.
	InterviewPoll time.Duration

	// NotificationPoll is the notification list refresh period.
	NotificationPoll time.Duration

	// NotificationLimit caps each notification fetch.
	NotificationLimit int

	// SubmitTimeout bounds a status-change submission.
	SubmitTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.InterviewPoll <= 0 {
		c.InterviewPoll = 5 * time.Minute
	}
	if c.NotificationPoll <= 0 {
		c.NotificationPoll = time.Minute
	}
	if c.NotificationLimit <= 0 {
		c.NotificationLimit = 50
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 15 * time.Second
	}
}

// Engine wires the channel, scheduler, store, and aggregator together and
// exposes the action surface the UI calls into.
type Engine struct {
	api           API
	interviews    *store.InterviewStore
	notifications *notify.Aggregator
	channel       *channel.Channel
	sched         *Scheduler
	conflicts     ConflictLog
	cfg           Config
	log           *logrus.Logger

	infoMu   gosync.Mutex
	info     []string
	handlers []int
	started  bool
}

// NewEngine creates the engine. The conflict log may be nil.
func NewEngine(
	restAPI API,
	interviews *store.InterviewStore,
	notifications *notify.Aggregator,
	ch *channel.Channel,
	conflicts ConflictLog,
	cfg Config,
	log *logrus.Logger,
) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg.applyDefaults()

	return &Engine{
		api:           restAPI,
		interviews:    interviews,
		notifications: notifications,
		channel:       ch,
		sched:         NewScheduler(log, cfg.SubmitTimeout*2),
		conflicts:     conflicts,
		cfg:           cfg,
		log:           log,
	}
}

// Start connects the push channel, joins the user's room, subscribes to
// pushed notifications, and arms the recurring refreshes. Idempotent.
func (e *Engine) Start() {
	e.infoMu.Lock()
	if e.started {
		e.infoMu.Unlock()
		return
	}
	e.started = true
	e.infoMu.Unlock()

	e.channel.Connect()
	if e.cfg.Room != "" {
		e.channel.JoinRoom(e.cfg.Room)
	}

	id := e.channel.OnNotification(func(ev channel.NotificationEvent) {
		e.notifications.IngestPushEvent(ev.Notification)
	})
	e.infoMu.Lock()
	e.handlers = append(e.handlers, id)
	e.infoMu.Unlock()

	e.sched.ScheduleInterval(KindInterviews, e.cfg.InterviewPoll, e.RefreshInterviews)
	e.sched.ScheduleInterval(KindNotifications, e.cfg.NotificationPoll, e.RefreshNotifications)
}

// Stop cancels all timers, unsubscribes, and tears down the channel.
func (e *Engine) Stop() {
	e.sched.Stop()

	e.infoMu.Lock()
	handlers := e.handlers
	e.handlers = nil
	e.started = false
	e.infoMu.Unlock()

	for _, id := range handlers {
		e.channel.RemoveHandler(id)
	}
	e.channel.Disconnect()
}

// OnForeground handles the app returning to the foreground: it re-arms a
// channel that may have exhausted its reconnect budget and fires immediate
// refreshes of both kinds.
func (e *Engine) OnForeground() {
	e.channel.Connect()
	e.sched.TriggerOnFocus(KindInterviews)
	e.sched.TriggerOnFocus(KindNotifications)
}

// Respond records the user's accept or decline decision. The optimistic
// store mutation completes before the network submission starts, so the UI
// reflects the decision with zero perceived latency. A transient network
// failure never rolls the visible state back; only an authoritative
// contradicting server response does, via a later refresh.
func (e *Engine) Respond(ctx context.Context, interviewID string, response model.InterviewStatus) error {
	if response != model.StatusAccepted && response != model.StatusDeclined {
		return fmt.Errorf("response must be accepted or declined, got %s", response)
	}

	if err := e.interviews.ApplyOptimistic(interviewID, response); err != nil {
		return err
	}

	submitCtx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
	defer cancel()

	err := e.api.SubmitResponse(submitCtx, interviewID, response)
	switch {
	case err == nil:
		return nil
	case api.IsConflict(err):
		e.resolveConflict(ctx, interviewID, response)
		return nil
	default:
		e.queueInfo("Your response is saved on this device and will sync automatically.")
		return fmt.Errorf("submitting response: %w", err)
	}
}

// resolveConflict handles the "already responded" condition: the action
// most likely succeeded earlier, so force a refresh and then make sure the
// user's decision stays visible even if the server still reports the stale
// pre-transition status.
func (e *Engine) resolveConflict(ctx context.Context, interviewID string, response model.InterviewStatus) {
	refreshErr := e.RefreshInterviews(ctx)
	if refreshErr != nil {
		e.log.WithError(refreshErr).Warn("forced refresh after response conflict failed")
	}

	iv, ok := e.interviews.Get(interviewID)
	if !ok {
		e.queueInfo("Your response was already recorded.")
		return
	}

	preTransition := model.PreTransitionOf(response)
	switch iv.Status {
	case response:
		// The refresh kept the local decision because the server still
		// reported the stale pre-transition value: propagation lag, not a
		// disagreement. Record it so the lag is visible later. A failed
		// refresh observed no server state, so there is nothing to record;
		// the next successful refresh reconciles normally.
		if _, pending := e.interviews.Pending(interviewID); pending && refreshErr == nil {
			e.recordConflict(ctx, interviewID, response, preTransition)
		}
	case preTransition:
		// The pending update got lost along the way; re-assert the user's
		// decision rather than show a stale state the server itself
		// claims is outdated.
		e.interviews.ForceApply(interviewID, response)
		e.recordConflict(ctx, interviewID, response, preTransition)
	default:
		// The server already resolved the interview differently; that
		// value is authoritative and the refresh installed it.
	}

	e.queueInfo("Your response was already recorded; the interview list will catch up shortly.")
}

// recordConflict logs a deferred-consistency resolution to the conflict
// log, best-effort.
func (e *Engine) recordConflict(ctx context.Context, interviewID string, proposed, server model.InterviewStatus) {
	e.log.WithFields(logrus.Fields{
		"interview": interviewID,
		"proposed":  proposed,
		"server":    server,
	}).Info("deferred consistency: local response kept ahead of server")

	if e.conflicts == nil {
		return
	}
	if err := e.conflicts.RecordConflict(ctx, interviewID, proposed, server); err != nil {
		e.log.WithError(err).Warn("recording conflict resolution failed")
	}
}

// MarkNotificationRead flips the notification read flag locally, then
// acknowledges it server-side best-effort. The local flip is what the user
// sees; a failed acknowledgement is logged and retried implicitly by the
// idempotent server endpoint on the next interaction.
func (e *Engine) MarkNotificationRead(ctx context.Context, notificationID string) {
	if !e.notifications.MarkAsRead(notificationID) {
		return
	}

	if err := e.api.MarkNotificationRead(ctx, notificationID); err != nil {
		e.log.WithError(err).WithField("notification", notificationID).
			Warn("acknowledging notification failed")
	}
}

// RefreshInterviews fetches the interview list and reconciles it into the
// store.
func (e *Engine) RefreshInterviews(ctx context.Context) error {
	list, err := e.api.ListInterviews(ctx)
	if err != nil {
		return fmt.Errorf("refreshing interviews: %w", err)
	}
	e.interviews.ReplaceAll(list)
	return nil
}

// RefreshNotifications fetches the notification list into the aggregator.
func (e *Engine) RefreshNotifications(ctx context.Context) error {
	list, err := e.api.ListNotifications(ctx, e.cfg.NotificationLimit)
	if err != nil {
		return fmt.Errorf("refreshing notifications: %w", err)
	}
	e.notifications.IngestFullRefresh(list)
	return nil
}

// ConnectionStatus reports the push channel's health for display.
func (e *Engine) ConnectionStatus() channel.Status {
	return e.channel.Status()
}

// Interviews returns the reconciled interview list, ordered by scheduled
// date.
func (e *Engine) Interviews() []model.Interview {
	return e.interviews.GetAll()
}

// UrgentNotifications returns the compact dashboard subset.
func (e *Engine) UrgentNotifications(now time.Time) []model.Notification {
	return e.notifications.ComputeDashboardSubset(now)
}

// UnreadCount returns the number of unread notifications.
func (e *Engine) UnreadCount() int {
	return e.notifications.UnreadCount()
}

// InfoMessages drains the queue of non-alarming messages the UI should
// show the user.
func (e *Engine) InfoMessages() []string {
	e.infoMu.Lock()
	defer e.infoMu.Unlock()

	msgs := e.info
	e.info = nil
	return msgs
}

// queueInfo appends a user-facing informational message.
func (e *Engine) queueInfo(msg string) {
	e.infoMu.Lock()
	defer e.infoMu.Unlock()
	e.info = append(e.info, msg)
}
