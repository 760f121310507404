package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Client is one subscriber connection. rooms is owned by the hub's Run
// goroutine; the pumps never touch it.
type Client struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan []byte
	rooms map[uint]bool
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:    id,
		Conn:  conn,
		Send:  make(chan []byte, 64),
		rooms: make(map[uint]bool),
	}
}

type subscribeMessage struct {
	Action string `json:"action"`
	PollID uint   `json:"pollId"`
}

// ReadPump consumes join-poll/leave-poll requests until the connection drops,
// then triggers the implicit disconnect path.
func (c *Client) ReadPump(hub *Hub) {
	defer func() {
		hub.Disconnect(c)
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Realtime read error", "clientId", c.ID, "error", err)
			}
			break
		}

		var msg subscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Ignoring malformed realtime message", "clientId", c.ID, "error", err)
			continue
		}

		switch msg.Action {
		case "join-poll":
			hub.Join(c, msg.PollID)
		case "leave-poll":
			hub.Leave(c, msg.PollID)
		default:
			slog.Warn("Unknown realtime action", "clientId", c.ID, "action", msg.Action)
		}
	}
}

// WritePump drains the send queue onto the socket; exits when the hub closes
// the channel on disconnect.
func (c *Client) WritePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
