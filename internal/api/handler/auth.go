package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"guardedheart/backend/internal/config"
	"guardedheart/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	ctxParticipantID = "participant_id"
	ctxRole          = "role"
)

// generateToken issues a session JWT binding a participant id to a role.
func generateToken(participantID string, role models.Role) (string, error) {
	claims := jwt.MapClaims{
		"participant_id": participantID,
		"role":           string(role),
		"exp":            time.Now().Add(config.JWTTTL).Unix(),
		"iss":            config.JWTIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.JWTSecret())
}

// parseToken validates a session JWT and returns its participant id and role.
func parseToken(tokenString string) (string, models.Role, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return config.JWTSecret(), nil
	}, jwt.WithIssuer(config.JWTIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("unexpected claims shape")
	}
	id, _ := claims["participant_id"].(string)
	role, _ := claims["role"].(string)
	if id == "" || (role != string(models.RoleUser) && role != string(models.RoleTherapist)) {
		return "", "", errors.New("token missing participant claims")
	}
	return id, models.Role(role), nil
}

// tokenFromRequest pulls the JWT from the Authorization header, falling back
// to the token query parameter (the websocket path, where browsers cannot
// set headers).
func tokenFromRequest(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// RequireRole validates the session token and enforces that the caller holds
// the given role. Users cannot reach therapist endpoints and vice versa.
func (h *Handler) RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		id, tokenRole, err := parseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		if tokenRole != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Wrong role for this resource"})
			return
		}
		c.Set(ctxParticipantID, id)
		c.Set(ctxRole, tokenRole)
		c.Next()
	}
}

// participantFrom reads the authenticated identity placed by RequireRole.
func participantFrom(c *gin.Context) (string, models.Role) {
	return c.GetString(ctxParticipantID), models.Role(c.GetString(ctxRole))
}
