// Package hub is the in-process rendering of the cross-window messaging the
// matching screens rely on: window.open handles, postMessage delivery and
// opener back-references. Delivery is best-effort with no acknowledgment;
// posting to a closed window is a silent no-op, and consistency falls back
// on the shared snapshot store at the next mount.
package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

// ErrHubClosed is returned when opening a window on a shut-down hub.
var ErrHubClosed = errors.New("hub is closed")

// WindowKind names the screen a window session represents.
type WindowKind string

const (
	WindowMain     WindowKind = "main"
	WindowLedger   WindowKind = "ledger"
	WindowMELedger WindowKind = "meledger"
	WindowPicker   WindowKind = "picker"
)

// Partition maps a window kind onto the record partition it owns.
func (k WindowKind) Partition() models.Partition {
	switch k {
	case WindowLedger:
		return models.PartitionLedger
	case WindowMELedger:
		return models.PartitionMELedger
	default:
		return models.PartitionSurvey
	}
}

// Hub tracks the open windows of one matching session group and routes
// messages between them. Every window carries the hub's origin token;
// messages posted with a different origin are dropped instead of delivered.
type Hub struct {
	mu        sync.RWMutex
	origin    string
	inboxSize int
	windows   map[string]*Window
	closed    bool
	logger    *zap.Logger
}

// New builds a hub that only delivers messages carrying origin.
func New(origin string, inboxSize int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if inboxSize <= 0 {
		inboxSize = 64
	}
	return &Hub{
		origin:    origin,
		inboxSize: inboxSize,
		windows:   make(map[string]*Window),
		logger:    logger,
	}
}

// Origin returns the origin token windows must post with.
func (h *Hub) Origin() string {
	return h.origin
}

// Window is one registered browser-window stand-in. Receivers consume
// Inbox(); the channel closes when the window does.
type Window struct {
	id       string
	kind     WindowKind
	hub      *Hub
	opener   *Window
	inbox    chan models.Message
	closed   bool
	lastSeen time.Time
}

// Open registers a top-level window.
func (h *Hub) Open(kind WindowKind) (*Window, error) {
	return h.open(kind, nil)
}

// OpenChild registers a window spawned via window.open from opener. The
// opener keeps the returned handle; if the child closes, posts through the
// stale handle go nowhere.
func (h *Hub) OpenChild(kind WindowKind, opener *Window) (*Window, error) {
	return h.open(kind, opener)
}

func (h *Hub) open(kind WindowKind, opener *Window) (*Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	w := &Window{
		id:       uuid.NewString(),
		kind:     kind,
		hub:      h,
		opener:   opener,
		inbox:    make(chan models.Message, h.inboxSize),
		lastSeen: time.Now(),
	}
	h.windows[w.id] = w
	h.logger.Debug("window opened", zap.String("window_id", w.id), zap.String("kind", string(kind)))
	return w, nil
}

// ID returns the window's identifier.
func (w *Window) ID() string { return w.id }

// Kind returns which screen the window represents.
func (w *Window) Kind() WindowKind { return w.kind }

// Inbox returns the receive channel. It is closed when the window closes.
func (w *Window) Inbox() <-chan models.Message { return w.inbox }

// Heartbeat marks the window as alive for the liveness sweep.
func (w *Window) Heartbeat() {
	w.hub.mu.Lock()
	defer w.hub.mu.Unlock()
	w.lastSeen = time.Now()
}

// Closed reports whether the window has been closed.
func (w *Window) Closed() bool {
	w.hub.mu.RLock()
	defer w.hub.mu.RUnlock()
	return w.closed
}

// Close detaches the window from the hub and closes its inbox. Closing an
// already closed window is a no-op.
func (w *Window) Close() {
	w.hub.mu.Lock()
	defer w.hub.mu.Unlock()
	w.closeLocked()
}

func (w *Window) closeLocked() {
	if w.closed {
		return
	}
	w.closed = true
	delete(w.hub.windows, w.id)
	close(w.inbox)
	w.hub.logger.Debug("window closed", zap.String("window_id", w.id), zap.String("kind", string(w.kind)))
}

// Post delivers a message to one specific window handle. Posting to a
// closed handle silently does nothing, mirroring a stale window.open
// reference.
func (w *Window) Post(target *Window, msg models.Message) {
	if target == nil {
		return
	}
	msg.Source = w.id
	msg.Origin = w.hub.origin
	w.hub.deliver(target, msg)
}

// PostToOpener delivers a message to the window that opened this one, if it
// exists and is still open.
func (w *Window) PostToOpener(msg models.Message) {
	w.Post(w.opener, msg)
}

// Broadcast delivers a message to every other open window. The sender never
// receives its own broadcast.
func (w *Window) Broadcast(msg models.Message) {
	msg.Source = w.id
	msg.Origin = w.hub.origin

	w.hub.mu.RLock()
	targets := make([]*Window, 0, len(w.hub.windows))
	for _, t := range w.hub.windows {
		if t.id != w.id {
			targets = append(targets, t)
		}
	}
	w.hub.mu.RUnlock()

	for _, t := range targets {
		w.hub.deliver(t, msg)
	}
}

func (h *Hub) deliver(target *Window, msg models.Message) {
	if msg.Origin != h.origin {
		h.logger.Warn("dropping message with foreign origin",
			zap.String("origin", msg.Origin), zap.String("type", string(msg.Type)))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if target.closed {
		return
	}
	select {
	case target.inbox <- msg:
	default:
		h.logger.Warn("window inbox full, dropping message",
			zap.String("window_id", target.id), zap.String("type", string(msg.Type)))
	}
}

// SweepStale closes every window whose last heartbeat is older than maxIdle
// and returns the IDs it closed. This replaces the opener's one-second
// closed-handle polling loop.
func (h *Hub) SweepStale(maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.Lock()
	defer h.mu.Unlock()
	var swept []string
	for _, w := range h.windows {
		if w.lastSeen.Before(cutoff) {
			swept = append(swept, w.id)
			w.closeLocked()
		}
	}
	return swept
}

// Shutdown closes every window and refuses further opens.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, w := range h.windows {
		w.closeLocked()
	}
}
