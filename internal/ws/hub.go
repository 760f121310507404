package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"poll-service/internal/poll"
)

// Message is the envelope for every event pushed to subscribers.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ViewersUpdate struct {
	Count int `json:"count"`
}

type roomRequest struct {
	client *Client
	pollID uint
}

type tallyUpdate struct {
	pollID uint
	data   []byte
}

// Hub tracks which clients watch which poll and fans tally snapshots out to
// them. All room state is process-local and owned by the Run goroutine; the
// mutex only guards the read-side accessors.
type Hub struct {
	clients map[*Client]bool
	rooms   map[uint]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client

	join      chan roomRequest
	leave     chan roomRequest
	broadcast chan tallyUpdate

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		join:       make(chan roomRequest),
		leave:      make(chan roomRequest),
		broadcast:  make(chan tallyUpdate, 64),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Info("Realtime client connected", "clientId", client.ID)

		case client := <-h.Unregister:
			h.removeClient(client)

		case req := <-h.join:
			h.joinRoom(req.client, req.pollID)

		case req := <-h.leave:
			h.leaveRoom(req.client, req.pollID)

		case update := <-h.broadcast:
			h.broadcastToRoom(update.pollID, update.data)

		case <-h.ctx.Done():
			slog.Info("Realtime hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// Join subscribes the client to a poll room.
func (h *Hub) Join(client *Client, pollID uint) {
	select {
	case h.join <- roomRequest{client: client, pollID: pollID}:
	case <-h.ctx.Done():
	}
}

// Leave unsubscribes the client from a poll room.
func (h *Hub) Leave(client *Client, pollID uint) {
	select {
	case h.leave <- roomRequest{client: client, pollID: pollID}:
	case <-h.ctx.Done():
	}
}

// Disconnect hands a dropped connection to the hub. Returns immediately when
// the hub has already shut down, so pump teardown never blocks.
func (h *Hub) Disconnect(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.ctx.Done():
	}
}

// BroadcastTally pushes a tally snapshot to every member of the poll's room.
// A room with zero subscribers is a no-op. Never blocks the caller: under
// backpressure the snapshot is dropped, the next one carries the cumulative
// state anyway.
func (h *Hub) BroadcastTally(pollID uint, result *poll.PollResult) {
	data, err := json.Marshal(Message{Type: "poll-update", Payload: result})
	if err != nil {
		slog.Error("Failed to marshal tally snapshot", "pollId", pollID, "error", err)
		return
	}

	select {
	case h.broadcast <- tallyUpdate{pollID: pollID, data: data}:
	case <-h.ctx.Done():
	default:
		slog.Warn("Tally broadcast dropped, hub backlogged", "pollId", pollID)
	}
}

// RoomViewers reports the current subscriber count for a poll.
func (h *Hub) RoomViewers(pollID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[pollID])
}

func (h *Hub) joinRoom(client *Client, pollID uint) {
	h.mu.Lock()
	if h.rooms[pollID] == nil {
		h.rooms[pollID] = make(map[*Client]bool)
	}
	h.rooms[pollID][client] = true
	client.rooms[pollID] = true
	h.mu.Unlock()

	h.emitViewers(pollID)
}

func (h *Hub) leaveRoom(client *Client, pollID uint) {
	h.mu.Lock()
	room, ok := h.rooms[pollID]
	if !ok || !room[client] {
		h.mu.Unlock()
		return
	}
	delete(room, client)
	delete(client.rooms, pollID)
	if len(room) == 0 {
		delete(h.rooms, pollID)
	}
	h.mu.Unlock()

	h.emitViewers(pollID)
}

// removeClient handles explicit unregister and implicit disconnect: the
// client leaves every room it joined and each of those rooms gets a fresh
// viewer count.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	affected := make([]uint, 0, len(client.rooms))
	for pollID := range client.rooms {
		room := h.rooms[pollID]
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, pollID)
		}
		affected = append(affected, pollID)
	}
	client.rooms = make(map[uint]bool)
	close(client.Send)
	h.mu.Unlock()

	for _, pollID := range affected {
		h.emitViewers(pollID)
	}
	slog.Info("Realtime client disconnected", "clientId", client.ID)
}

func (h *Hub) emitViewers(pollID uint) {
	h.mu.RLock()
	count := len(h.rooms[pollID])
	members := make([]*Client, 0, count)
	for client := range h.rooms[pollID] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(Message{Type: "viewers-update", Payload: ViewersUpdate{Count: count}})
	if err != nil {
		return
	}
	for _, client := range members {
		h.send(client, data)
	}
}

func (h *Hub) broadcastToRoom(pollID uint, data []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[pollID]))
	for client := range h.rooms[pollID] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		h.send(client, data)
	}
}

// send queues data for one client. A client whose buffer is full is too far
// behind to be useful and gets disconnected rather than stalling the room.
// Callers iterate over member snapshots that can go stale when an eviction
// cascades through emitViewers, so membership is re-checked here: a client
// already removed has a closed Send channel and must not be written to.
func (h *Hub) send(client *Client, data []byte) {
	h.mu.RLock()
	active := h.clients[client]
	h.mu.RUnlock()
	if !active {
		return
	}

	select {
	case client.Send <- data:
	default:
		h.removeClient(client)
	}
}
