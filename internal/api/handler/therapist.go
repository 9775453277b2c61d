package handler

import (
	"errors"
	"net/http"

	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type therapistLoginRequest struct {
	Code string `json:"code" binding:"required"`
}

// TherapistLogin exchanges an access code for a console token.
func (h *Handler) TherapistLogin(c *gin.Context) {
	var req therapistLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code is required"})
		return
	}

	therapist, err := h.Storage.GetTherapistByCode(req.Code)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown code"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}

	token, err := generateToken(therapist.ID, models.RoleTherapist)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"therapist": therapist,
	})
}

// WaitingRoom lists the users currently queued, oldest first, for the
// console view.
func (h *Handler) WaitingRoom(c *gin.Context) {
	waiting := h.Hub.Queue.Snapshot()

	out := make([]gin.H, 0, len(waiting))
	for _, p := range waiting {
		out = append(out, gin.H{
			"user_id":         p.UserID,
			"name":            p.Name,
			"initial_message": p.InitialMessage,
			"enqueued_at":     p.EnqueuedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"waiting": out})
}
