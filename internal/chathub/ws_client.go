package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"guardedheart/backend/internal/config"
	"guardedheart/backend/internal/models"

	"github.com/gorilla/websocket"
)

// WebSocketClient implements the Client interface on a gorilla/websocket
// connection: one read pump feeding the hub, one write pump draining Send.
type WebSocketClient struct {
	ParticipantID string
	Role          models.Role
	DisplayName   string
	Conn          *websocket.Conn
	Hub           *Hub
	Send          chan models.ChatMessage

	closeOnce sync.Once
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, participantID string, role models.Role, displayName string) *WebSocketClient {
	return &WebSocketClient{
		ParticipantID: participantID,
		Role:          role,
		DisplayName:   displayName,
		Conn:          conn,
		Hub:           hub,
		Send:          make(chan models.ChatMessage, config.SendBufferSize),
	}
}

func (c *WebSocketClient) GetParticipantID() string { return c.ParticipantID }
func (c *WebSocketClient) GetRole() models.Role     { return c.Role }
func (c *WebSocketClient) GetDisplayName() string   { return c.DisplayName }

func (c *WebSocketClient) GetSendChannel() chan<- models.ChatMessage { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the connection down. Closing Send stops the write pump; the
// read pump stops when the connection errors out.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
		c.Conn.Close()
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Disconnect(c.ParticipantID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message from %s: %v", c.ParticipantID, err)
			}
			break
		}

		var msg models.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Error decoding JSON from client %s: %v", c.ParticipantID, err)
			continue
		}

		// The sender name on the wire is advisory; the server stamps the
		// registered display name on anything that is not a lifecycle event.
		if !msg.IsConnectionEvent() {
			msg.Name = c.DisplayName
		}

		c.Hub.HandleIncoming(c, msg)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// Channel closed by the hub side.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error encoding JSON for client %s: %v", c.ParticipantID, err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
