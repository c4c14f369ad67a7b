// Package session orchestrates one room's lifecycle: history load, socket
// connect, event subscriptions, teardown. A controller is single-use; a
// new room activation gets a fresh controller and a fresh store, so no
// state ever crosses rooms.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logger_lib "github.com/s21platform/logger-lib"
	"github.com/s21platform/metrics-lib/pkg"

	"github.com/s21platform/chat-client/internal/client/chatapi"
	"github.com/s21platform/chat-client/internal/config"
	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/pkg/apperr"
	"github.com/s21platform/chat-client/internal/store"
	"github.com/s21platform/chat-client/internal/transport"
)

const historyLimit = 50

type Controller struct {
	roomID  string
	history HistoryLoader
	dialer  Dialer
	archive ArchiveRepo
	msgs    *store.Store

	// alive is the relevance fence: cleared at teardown start, checked by
	// every asynchronous continuation before touching shared state.
	alive atomic.Bool
	state atomic.Int32

	mu   sync.Mutex
	conn Conn
	subs []*transport.Subscription

	logger  logger_lib.LoggerInterface
	metrics *pkg.Metrics

	// OnUpdate, when set before Start, is called with the current record
	// after each applied store mutation.
	OnUpdate func(msg model.Message)
}

func New(roomID string, history HistoryLoader, dialer Dialer, archive ArchiveRepo) *Controller {
	c := &Controller{
		roomID:  roomID,
		history: history,
		dialer:  dialer,
		archive: archive,
		msgs:    store.New(),
	}
	c.alive.Store(true)
	return c
}

// Start walks Idle → Loading → Connecting → Live. History failure is
// non-fatal (the view fills from live events); connect failure leaves the
// controller Degraded with REST fallbacks for edit/delete. History is
// applied before any subscription registers, so live events never precede
// historical ones within a controller.
func (c *Controller) Start(ctx context.Context) error {
	logger := logger_lib.FromContext(ctx, config.KeyLogger)
	logger.AddFuncName("Start")
	c.logger = logger
	if metrics, ok := ctx.Value(config.KeyMetrics).(*pkg.Metrics); ok {
		c.metrics = metrics
	}

	if !c.alive.Load() {
		return nil
	}
	c.setState(StateLoading)

	messages, err := c.history.RecentMessages(ctx, c.roomID, chatapi.HistoryOptions{Limit: historyLimit})
	if !c.alive.Load() {
		return nil
	}
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load history for room %s: %v", c.roomID, err))
		c.restoreFromArchive(ctx)
	} else {
		for _, msg := range messages {
			if c.msgs.Insert(msg) {
				c.archiveSave(msg)
			}
		}
	}

	c.setState(StateConnecting)
	conn, err := c.dialer.Connect(ctx)
	if !c.alive.Load() {
		c.dialer.Disconnect()
		return nil
	}
	if err != nil {
		c.setState(StateDegraded)
		c.inc("session.connect.error")
		logger.Error(fmt.Sprintf("failed to connect for room %s, continuing degraded: %v", c.roomID, err))
		return nil
	}

	c.mu.Lock()
	c.conn = conn
	c.subs = []*transport.Subscription{
		conn.Subscribe(model.EventMessageNew, c.onMessageNew),
		conn.Subscribe(model.EventMessageEdited, c.onMessageEdited),
		conn.Subscribe(model.EventMessageDeleted, c.onMessageDeleted),
		conn.Subscribe(model.EventRoomMessage, c.onRoomMessage),
	}
	c.mu.Unlock()

	if err := conn.Emit(model.EventJoin, model.JoinRoomPayload{RoomID: c.roomID}); err != nil {
		logger.Error(fmt.Sprintf("failed to join room %s: %v", c.roomID, err))
	}

	c.setState(StateLive)
	c.inc("session.connect.ok")

	return nil
}

// Close fences off in-flight continuations first, then tears the session
// down: best-effort leave, listener disposal, transport disconnect.
// Idempotent; the controller ends Idle and is discarded.
func (c *Controller) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	c.setState(StateClosing)

	c.mu.Lock()
	conn := c.conn
	subs := c.subs
	c.conn = nil
	c.subs = nil
	c.mu.Unlock()

	if conn != nil && conn.Alive() {
		if err := conn.Emit(model.EventLeave, model.JoinRoomPayload{RoomID: c.roomID}); err != nil {
			c.logError(fmt.Sprintf("failed to leave room %s: %v", c.roomID, err))
		}
	}
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	c.dialer.Disconnect()

	c.setState(StateIdle)
}

func (c *Controller) RoomID() string {
	return c.roomID
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Live reports whether outbound commands can go over the socket. A
// connection dropped after going live demotes the controller to Degraded.
func (c *Controller) Live() bool {
	if c.State() != StateLive {
		return false
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || !conn.Alive() {
		c.setState(StateDegraded)
		c.inc("session.connection.lost")
		return false
	}
	return true
}

// Emit sends an event over the live socket, or fails with a typed
// not-connected error the caller can show to the user.
func (c *Controller) Emit(event string, payload interface{}) error {
	if !c.Live() {
		return &apperr.ConnectionError{Addr: "room " + c.roomID}
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	// A concurrent Close can clear the connection between the liveness
	// check and here.
	if conn == nil {
		return &apperr.ConnectionError{Addr: "room " + c.roomID}
	}

	return conn.Emit(event, payload)
}

// Snapshot returns the room's current ordered message list.
func (c *Controller) Snapshot() model.MessageList {
	return c.msgs.Snapshot()
}

func (c *Controller) onMessageNew(data json.RawMessage) {
	if !c.alive.Load() {
		return
	}

	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logError(fmt.Sprintf("failed to decode %s event: %v", model.EventMessageNew, err))
		return
	}

	c.applyInsert(msg)
}

// onRoomMessage handles the single-room dialect: the same record, tagged
// with its room. Events for other rooms are dropped here.
func (c *Controller) onRoomMessage(data json.RawMessage) {
	if !c.alive.Load() {
		return
	}

	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logError(fmt.Sprintf("failed to decode %s event: %v", model.EventRoomMessage, err))
		return
	}
	if msg.RoomID != "" && msg.RoomID != c.roomID {
		return
	}

	c.applyInsert(msg)
}

func (c *Controller) applyInsert(msg model.Message) {
	if msg.ID == "" {
		return
	}
	if !c.msgs.Insert(msg) {
		return
	}

	c.inc("session.message.new")
	c.archiveSave(msg)
	c.notify(msg.ID)
}

func (c *Controller) onMessageEdited(data json.RawMessage) {
	if !c.alive.Load() {
		return
	}

	var event model.MessageEditedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logError(fmt.Sprintf("failed to decode %s event: %v", model.EventMessageEdited, err))
		return
	}

	editedAt := time.Now()
	if event.UpdatedAt != nil {
		editedAt = *event.UpdatedAt
	}

	// Unknown id: the target has not arrived yet, the edit is dropped.
	if !c.msgs.ApplyEdit(event.ID, event.Text, editedAt) {
		return
	}

	c.inc("session.message.edited")
	if c.archive != nil {
		if err := c.archive.MarkEdited(context.Background(), event.ID, event.Text, editedAt); err != nil {
			c.logError(fmt.Sprintf("failed to archive edit of %s: %v", event.ID, err))
		}
	}
	c.notify(event.ID)
}

func (c *Controller) onMessageDeleted(data json.RawMessage) {
	if !c.alive.Load() {
		return
	}

	var event model.MessageDeletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logError(fmt.Sprintf("failed to decode %s event: %v", model.EventMessageDeleted, err))
		return
	}

	deletedAt := time.Now()
	if event.DeletedAt != nil {
		deletedAt = *event.DeletedAt
	}

	if !c.msgs.ApplyDelete(event.ID, deletedAt) {
		return
	}

	c.inc("session.message.deleted")
	if c.archive != nil {
		if err := c.archive.MarkDeleted(context.Background(), event.ID, deletedAt); err != nil {
			c.logError(fmt.Sprintf("failed to archive delete of %s: %v", event.ID, err))
		}
	}
	c.notify(event.ID)
}

// restoreFromArchive fills the initial view from the local archive when
// the server's history endpoint is unreachable, so a restarted client
// still shows the room while offline.
func (c *Controller) restoreFromArchive(ctx context.Context) {
	if c.archive == nil {
		return
	}

	messages, err := c.archive.RecentMessages(ctx, c.roomID, historyLimit)
	if err != nil {
		c.logError(fmt.Sprintf("failed to restore room %s from archive: %v", c.roomID, err))
		return
	}
	for _, msg := range messages {
		c.msgs.Insert(msg)
	}
	if len(messages) > 0 {
		c.inc("session.history.restored")
	}
}

func (c *Controller) archiveSave(msg model.Message) {
	if c.archive == nil {
		return
	}
	if err := c.archive.SaveMessage(context.Background(), &msg); err != nil {
		c.logError(fmt.Sprintf("failed to archive message %s: %v", msg.ID, err))
	}
}

func (c *Controller) notify(id string) {
	if c.OnUpdate == nil {
		return
	}
	if msg, ok := c.msgs.Get(id); ok {
		c.OnUpdate(msg)
	}
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Controller) inc(name string) {
	if c.metrics != nil {
		c.metrics.Increment(name)
	}
}

func (c *Controller) logError(msg string) {
	if c.logger != nil {
		c.logger.Error(msg)
	}
}

// WrapDialer adapts the concrete transport dialer to the controller's
// contract.
func WrapDialer(d *transport.Dialer) Dialer {
	return dialerAdapter{d: d}
}

type dialerAdapter struct {
	d *transport.Dialer
}

func (a dialerAdapter) Connect(ctx context.Context) (Conn, error) {
	session, err := a.d.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a dialerAdapter) Disconnect() {
	a.d.Disconnect()
}
