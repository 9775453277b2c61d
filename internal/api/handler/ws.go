package handler

import (
	"errors"
	"net/http"

	"guardedheart/backend/internal/chathub"
	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin; the token is the access control. Tighten per deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and attaches the participant to the
// hub: users join the waiting queue, therapists go online in the directory.
// The token rides in the query string because browsers cannot set headers on
// websocket requests.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	participantID, role, err := parseToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	switch role {
	case models.RoleUser:
		h.serveUserSocket(c, participantID)
	case models.RoleTherapist:
		h.serveTherapistSocket(c, participantID)
	}
}

func (h *Handler) serveUserSocket(c *gin.Context, userID string) {
	// The pending row must exist before the channel opens; it also carries
	// the display name stamped on every relayed message.
	pending, err := h.Storage.GetPendingUserByUserID(userID)
	if errors.Is(err, storage.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No session; start one first"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, userID, models.RoleUser, pending.Name)
	if err := h.Hub.ConnectUser(client, *pending); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
	}
}

func (h *Handler) serveTherapistSocket(c *gin.Context, therapistID string) {
	name := "Therapist"
	if t, err := h.Storage.GetTherapistByID(therapistID); err == nil {
		name = t.Name
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, therapistID, models.RoleTherapist, name)
	if err := h.Hub.ConnectTherapist(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
	}
}
