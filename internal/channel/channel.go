// Package channel maintains one logical connection to the server's push
// transport, re-establishing it across transient failures and fanning out
// typed messages to subscribers.
package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/cvconnect/interviewsync/internal/model"
)

// DefaultMaxReconnectAttempts bounds automatic reconnection before the
// channel gives up and waits for an explicit Connect.
const DefaultMaxReconnectAttempts = 10

// subscriberBuffer is the per-subscriber queue depth. A subscriber that
// falls this far behind starts losing the newest events.
const subscriberBuffer = 64

// Event is a generic server-pushed message.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// NotificationEvent is the typed payload of a pushed notification frame.
type NotificationEvent struct {
	Type         string             `json:"type"`
	Notification model.Notification `json:"notification"`
}

// joinFrame is the outbound room-join request.
type joinFrame struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// MessageHandler receives generic events.
type MessageHandler func(Event)

// NotificationHandler receives typed notification events.
type NotificationHandler func(NotificationEvent)

// subscriber owns a buffered queue and a delivery goroutine, which gives
// each handler FIFO delivery without coupling it to the read loop.
type subscriber struct {
	ch chan interface{}
}

// Channel is the client's single event channel. Connect and Disconnect are
// cheap and idempotent; all connection work happens on a background
// session goroutine.
type Channel struct {
	dial        DialFunc
	log         *logrus.Logger
	maxAttempts int
	newBackoff  func() backoff.BackOff

	mu        sync.Mutex
	state     State
	attempts  int
	conn      Conn
	room      string
	subs      map[int]*subscriber
	notifSubs map[int]bool
	nextSubID int
	stop      chan struct{}
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithMaxReconnectAttempts overrides the automatic reconnection bound.
func WithMaxReconnectAttempts(n int) ChannelOption {
	return func(c *Channel) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff overrides the reconnect backoff factory, mainly for tests.
func WithBackoff(factory func() backoff.BackOff) ChannelOption {
	return func(c *Channel) {
		c.newBackoff = factory
	}
}

// New creates a channel that dials with the given DialFunc. A nil logger
// falls back to the logrus standard logger.
func New(dial DialFunc, log *logrus.Logger, opts ...ChannelOption) *Channel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Channel{
		dial:        dial,
		log:         log,
		maxAttempts: DefaultMaxReconnectAttempts,
		newBackoff:  defaultBackoff,
		state:       StateDisconnected,
		subs:        make(map[int]*subscriber),
		notifSubs:   make(map[int]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// defaultBackoff is a capped exponential curve: 500ms doubling up to 30s.
func defaultBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// Connect starts the connection session. It is idempotent: calling it while
// connecting or connected is a no-op, so no two handshakes are ever in
// flight at once.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.attempts = 0
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(stop)
}

// Disconnect tears down the transport and stops the session. No automatic
// reconnection is scheduled afterwards.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// JoinRoom scopes pushed events to the given room. The join is re-issued
// automatically after every successful reconnect.
func (c *Channel) JoinRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.room = roomID
	if c.state == StateConnected && c.conn != nil {
		if err := c.conn.WriteJSON(joinFrame{Event: "join", Room: roomID}); err != nil {
			c.log.WithError(err).Warn("joining room failed; will retry on reconnect")
		}
	}
}

// OnMessage registers a generic message subscriber and returns its handler
// id for later removal. Delivery is FIFO per subscriber.
func (c *Channel) OnMessage(h MessageHandler) int {
	return c.addSubscriber(func(v interface{}) {
		if ev, ok := v.(Event); ok {
			h(ev)
		}
	}, false)
}

// OnNotification registers a typed notification subscriber and returns its
// handler id for later removal. Delivery is FIFO per subscriber.
func (c *Channel) OnNotification(h NotificationHandler) int {
	return c.addSubscriber(func(v interface{}) {
		if ev, ok := v.(NotificationEvent); ok {
			h(ev)
		}
	}, true)
}

// RemoveHandler unregisters a subscriber by id.
func (c *Channel) RemoveHandler(id int) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
		delete(c.notifSubs, id)
	}
	c.mu.Unlock()

	if ok {
		close(sub.ch)
	}
}

// Status returns a snapshot of the connection health.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, ReconnectAttempts: c.attempts}
}

// addSubscriber starts the delivery goroutine for a new subscriber.
func (c *Channel) addSubscriber(deliver func(interface{}), notification bool) int {
	sub := &subscriber{ch: make(chan interface{}, subscriberBuffer)}

	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subs[id] = sub
	if notification {
		c.notifSubs[id] = true
	}
	c.mu.Unlock()

	go func() {
		for v := range sub.ch {
			deliver(v)
		}
	}()

	return id
}

// run is the connection session loop: dial, join, read until the transport
// drops, back off, repeat. It exits when the stop channel closes or the
// attempt budget is exhausted.
func (c *Channel) run(stop chan struct{}) {
	bo := c.newBackoff()

	for {
		conn, err := c.dial(context.Background())
		if err != nil {
			c.log.WithError(err).Warn("event channel dial failed")
			if c.retryOrGiveUp(stop, bo) {
				return
			}
			continue
		}

		c.mu.Lock()
		select {
		case <-stop:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.state = StateConnected
		c.attempts = 0
		room := c.room
		if room != "" {
			if err := conn.WriteJSON(joinFrame{Event: "join", Room: room}); err != nil {
				c.log.WithError(err).Warn("rejoining room failed")
			}
		}
		c.mu.Unlock()
		bo.Reset()

		readErr := c.readLoop(conn)

		select {
		case <-stop:
			// Deliberate disconnect; state already set by Disconnect.
			return
		default:
		}

		c.mu.Lock()
		c.conn = nil
		c.state = StateDisconnected
		c.mu.Unlock()
		conn.Close()

		c.log.WithError(readErr).Info("event channel connection lost")
		if c.retryOrGiveUp(stop, bo) {
			return
		}
	}
}

// retryOrGiveUp counts a failed attempt and waits out the backoff. It
// returns true when the session should end, either because Disconnect was
// called or the attempt budget ran out.
func (c *Channel) retryOrGiveUp(stop chan struct{}, bo backoff.BackOff) bool {
	c.mu.Lock()
	c.attempts++
	attempts := c.attempts
	if attempts >= c.maxAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.WithField("attempts", attempts).
			Warn("event channel reconnect budget exhausted; waiting for explicit connect")
		return true
	}
	c.state = StateConnecting
	c.mu.Unlock()

	select {
	case <-stop:
		return true
	case <-time.After(bo.NextBackOff()):
		return false
	}
}

// readLoop reads frames until the transport fails and dispatches them to
// subscribers.
func (c *Channel) readLoop(conn Conn) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(data)
	}
}

// dispatch parses one inbound frame and fans it out. Sends are
// non-blocking: a subscriber with a full queue loses the frame rather than
// stalling the read loop, with a log line to show for it.
func (c *Channel) dispatch(data []byte) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		c.log.WithError(err).Debug("dropping unparseable frame")
		return
	}

	var payload interface{} = ev
	isNotification := ev.Name == "notification"
	if isNotification {
		var ne NotificationEvent
		if err := json.Unmarshal(ev.Data, &ne); err != nil {
			c.log.WithError(err).Debug("dropping malformed notification frame")
			return
		}
		payload = ne
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, sub := range c.subs {
		if c.notifSubs[id] != isNotification {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			c.log.WithField("subscriber", id).Warn("subscriber queue full; dropping event")
		}
	}
}
