package handler

import (
	"errors"
	"net/http"

	"guardedheart/backend/internal/identity"
	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type startSessionRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// StartSession creates the anonymous user and their pending entry, applying
// the random-name and predefined-message defaults, and issues a user token.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := identity.DisplayName(req.Name)
	message := identity.OpeningMessage(req.Message)

	pending, err := h.Storage.CreatePendingUser(name, message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, err := generateToken(pending.UserID, models.RoleUser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         pending.UserID,
		"name":            pending.Name,
		"initial_message": pending.InitialMessage,
		"token":           token,
	})
}

// GetSession returns the caller's waiting-room data, or their conversation
// when a match has already happened. 404 when neither exists.
func (h *Handler) GetSession(c *gin.Context) {
	userID, _ := participantFrom(c)

	pending, err := h.Storage.GetPendingUserByUserID(userID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"user_id":         pending.UserID,
			"name":            pending.Name,
			"initial_message": pending.InitialMessage,
			"status":          "waiting",
		})
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}

	conv, err := h.Storage.GetActiveConversationByUserID(userID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No session"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":         conv.UserID,
		"name":            conv.UserName,
		"initial_message": conv.InitialMessage,
		"therapist_name":  conv.TherapistName,
		"status":          "active",
	})
}

// LeaveSession is the voluntary exit: the waiting entry, the pending row and
// any live conversation all go.
func (h *Handler) LeaveSession(c *gin.Context) {
	userID, _ := participantFrom(c)
	h.Hub.LeaveUser(userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
