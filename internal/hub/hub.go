// Package hub tracks live client connections and fans shared-state events out
// to them. A single goroutine owns the client map and applies every event to
// completion before the next one, so clients never observe state transitions
// in different relative orders.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prismspecs/pi-captive/internal/domain"
	"github.com/prismspecs/pi-captive/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	cmdBufferSize  = 256
)

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	replyChannel chan registerReply
}

type registerReply struct {
	clientID uuid.UUID
	err      error
}

type unregisterCmd struct {
	baseHubCmd
	clientID uuid.UUID
}

type eventCmd struct {
	baseHubCmd
	clientID uuid.UUID
	raw      []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// --- Hub ---

// Hub is the connection registry and broadcast dispatcher.
type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	store      domain.StateStore
	clients    map[uuid.UUID]*clientWriter
	maxClients int
	done       chan struct{}
}

// NewHub creates a hub over the given store and starts its dispatch loop.
// maxClients caps concurrent connections; registration fails beyond it.
func NewHub(store domain.StateStore, maxClients int, clock clockwork.Clock) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, cmdBufferSize),
		clock:      clock,
		store:      store,
		clients:    make(map[uuid.UUID]*clientWriter),
		maxClients: maxClients,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Register allocates an identity for a new transport session and queues its
// hydration frame. The snapshot is taken inside the dispatch loop, so the
// init payload and every later broadcast to this connection are totally
// ordered.
func (h *Hub) Register(conn *websocket.Conn) (uuid.UUID, error) {
	replyCh := make(chan registerReply, 1)

	select {
	case h.cmdCh <- registerCmd{connection: conn, replyChannel: replyCh}:
	case <-h.done:
		return uuid.Nil, domain.ErrHubStopped
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.clientID, reply.err
	case <-h.done:
		return uuid.Nil, domain.ErrHubStopped
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Idempotent; safe to call after send
// failures or repeatedly.
func (h *Hub) Unregister(clientID uuid.UUID) {
	select {
	case h.cmdCh <- unregisterCmd{clientID: clientID}:
	case <-h.done:
	}
}

// Dispatch queues a raw client frame for processing. Events are applied
// strictly in arrival order.
func (h *Hub) Dispatch(clientID uuid.UUID, raw []byte) {
	select {
	case h.cmdCh <- eventCmd{clientID: clientID, raw: raw}:
	case <-h.done:
	}
}

// ClientCount returns the number of live connections. Returns -1 if the
// command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- clientCountCmd{replyChannel: replyCh}:
	case <-h.done:
		return 0
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, sending close frames to all clients.
func (h *Hub) Stop() {
	select {
	case h.cmdCh <- stopCmd{}:
	case <-h.done:
		return
	}
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.clientID)
		case eventCmd:
			h.handleEvent(c)
		case clientCountCmd:
			c.replyChannel <- len(h.clients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting client: connection limit reached", "max_clients", h.maxClients)
		c.connection.Close()
		c.replyChannel <- registerReply{err: domain.ErrHubFull}
		return
	}

	clientID := uuid.New()
	cw := newClientWriter(c.connection, h.clock)
	h.clients[clientID] = cw

	metrics.ConnectedClients.Set(float64(len(h.clients)))

	// Hydrate the new connection from the store before any later event
	// reaches it.
	snap := h.store.Snapshot()
	init := domain.InitEvent{
		Type:     domain.EventInit,
		Messages: snap.Messages,
		Sounds:   snap.Sounds,
		Canvas:   snap.Canvas,
	}
	data, err := json.Marshal(init)
	if err != nil {
		slog.Error("Failed to marshal init frame", "error", err)
	} else {
		h.send(clientID, cw, data)
	}

	slog.Debug("Client registered", "conn_id", clientID.String(), "total_clients", len(h.clients))
	c.replyChannel <- registerReply{clientID: clientID}
}

func (h *Hub) handleUnregister(clientID uuid.UUID) {
	cw, exists := h.clients[clientID]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, clientID)

	metrics.ConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client unregistered", "conn_id", clientID.String(), "remaining_clients", len(h.clients))
}

func (h *Hub) handleEvent(c eventCmd) {
	if _, exists := h.clients[c.clientID]; !exists {
		// Frame raced a disconnect; nothing to do.
		return
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(c.raw, &envelope); err != nil {
		slog.Warn("Dropping malformed frame", "conn_id", c.clientID.String(), "error", err)
		metrics.EventsTotal.WithLabelValues("malformed", "dropped").Inc()
		return
	}

	switch envelope.Type {
	case domain.EventChatMessage:
		h.handleChatMessage(c.clientID, c.raw)
	case domain.EventNoiseAdd:
		h.handleNoiseAdd(c.clientID, c.raw)
	case domain.EventCanvasUpdate:
		h.handleCanvasUpdate(c.clientID, c.raw)
	case domain.EventCanvasClear:
		h.handleCanvasClear(c.clientID)
	default:
		slog.Warn("Dropping unknown event type", "conn_id", c.clientID.String(), "event_type", envelope.Type)
		metrics.EventsTotal.WithLabelValues("unknown", "dropped").Inc()
	}
}

func (h *Hub) handleChatMessage(clientID uuid.UUID, raw []byte) {
	var event domain.ChatMessageEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		metrics.EventsTotal.WithLabelValues(domain.EventChatMessage, "dropped").Inc()
		return
	}

	text := strings.TrimSpace(event.Text)
	if text == "" {
		slog.Debug("Dropping empty chat message", "conn_id", clientID.String())
		metrics.EventsTotal.WithLabelValues(domain.EventChatMessage, "dropped").Inc()
		return
	}

	msg := h.store.AppendMessage(event.Name, text, h.eventTimestamp(event.Timestamp))

	out := domain.ChatMessageEvent{
		Type:      domain.EventChatMessage,
		ID:        msg.ID,
		Name:      msg.Author,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}
	h.broadcast(out, uuid.Nil)
	metrics.EventsTotal.WithLabelValues(domain.EventChatMessage, "applied").Inc()
}

func (h *Hub) handleNoiseAdd(clientID uuid.UUID, raw []byte) {
	var event domain.NoiseAddEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		metrics.EventsTotal.WithLabelValues(domain.EventNoiseAdd, "dropped").Inc()
		return
	}

	clip, err := h.store.AppendSound(event.Name, event.Data, h.eventTimestamp(event.Timestamp))
	if err != nil {
		// Oversized clips are dropped silently; the sender keeps its
		// connection.
		slog.Debug("Dropping sound clip", "conn_id", clientID.String(), "error", err, "size", len(event.Data))
		metrics.EventsTotal.WithLabelValues(domain.EventNoiseAdd, "dropped").Inc()
		return
	}

	out := domain.NoiseAddEvent{
		Type:      domain.EventNoiseAdd,
		ID:        clip.ID,
		Name:      clip.Author,
		Data:      clip.Data,
		Timestamp: clip.Timestamp,
	}
	h.broadcast(out, uuid.Nil)
	metrics.EventsTotal.WithLabelValues(domain.EventNoiseAdd, "applied").Inc()
}

func (h *Hub) handleCanvasUpdate(clientID uuid.UUID, raw []byte) {
	var event domain.CanvasUpdateEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.Data == "" {
		metrics.EventsTotal.WithLabelValues(domain.EventCanvasUpdate, "dropped").Inc()
		return
	}

	h.store.SetCanvas(event.Data)

	// The sender already holds the authoritative local draw state.
	out := domain.CanvasUpdateEvent{Type: domain.EventCanvasUpdate, Data: event.Data}
	h.broadcast(out, clientID)
	metrics.EventsTotal.WithLabelValues(domain.EventCanvasUpdate, "applied").Inc()
}

func (h *Hub) handleCanvasClear(clientID uuid.UUID) {
	h.store.ClearCanvas()

	out := domain.CanvasClearEvent{Type: domain.EventCanvasClear}
	h.broadcast(out, uuid.Nil)
	metrics.EventsTotal.WithLabelValues(domain.EventCanvasClear, "applied").Inc()
}

// broadcast fans a frame out to every client except exclude (uuid.Nil
// excludes nobody). Delivery is non-blocking per destination: a client whose
// buffer is full is evicted instead of delaying the others.
func (h *Hub) broadcast(event any, exclude uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast frame", "error", err)
		return
	}

	start := h.clock.Now()

	var slow []uuid.UUID
	for clientID, cw := range h.clients {
		if clientID == exclude {
			continue
		}
		select {
		case cw.sendChannel <- data:
		default:
			slow = append(slow, clientID)
		}
	}

	for _, clientID := range slow {
		slog.Warn("Disconnecting slow client", "conn_id", clientID.String())
		metrics.SlowClientsEvicted.Inc()
		h.handleUnregister(clientID)
	}

	metrics.BroadcastDuration.Observe(h.clock.Since(start).Seconds())
}

// send queues a frame for a single connection, evicting it when slow.
func (h *Hub) send(clientID uuid.UUID, cw *clientWriter, data []byte) {
	select {
	case cw.sendChannel <- data:
	default:
		slog.Warn("Disconnecting slow client", "conn_id", clientID.String())
		metrics.SlowClientsEvicted.Inc()
		h.handleUnregister(clientID)
	}
}

func (h *Hub) eventTimestamp(ts int64) int64 {
	if ts != 0 {
		return ts
	}
	return h.clock.Now().UnixMilli()
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))

	for clientID, cw := range h.clients {
		cw.stopGraceful("Server shutting down")
		delete(h.clients, clientID)
	}

	metrics.ConnectedClients.Set(0)
	slog.Info("Hub shutdown complete")
}
