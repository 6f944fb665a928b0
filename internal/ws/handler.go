package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/auth"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/session"
)

// Sessions is the part of the session manager the socket layer needs.
type Sessions interface {
	Get(id string) (*session.Session, error)
	Exists(ctx context.Context, id string) bool
}

// Handler upgrades authenticated players into a session's room.
type Handler struct {
	hub      *Hub
	sessions Sessions
	tokens   *auth.Issuer
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler builds the upgrade handler. checkOrigin may be nil to accept any origin.
func NewHandler(hub *Hub, sessions Sessions, tokens *auth.Issuer, checkOrigin func(*http.Request) bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:      hub,
		sessions: sessions,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// Serve handles GET /sessions/:id/ws.
func (h *Handler) Serve(c *gin.Context) {
	sessionID := c.Param("id")

	claims, err := h.tokens.Parse(auth.TokenFromRequest(c.Request))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "valid player token required"})
		return
	}
	if claims.SessionID != sessionID {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is for another session"})
		return
	}

	s, err := h.sessions.Get(sessionID)
	switch {
	case err == nil:
		if !s.HasPlayer(claims.PlayerID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "player has not joined this session"})
			return
		}
	case errors.Is(err, session.ErrNotFound) && h.sessions.Exists(c.Request.Context(), sessionID):
		s = nil
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		sessionID: sessionID,
		playerID:  claims.PlayerID,
		session:   s,
		send:      make(chan []byte, sendBuffer),
		log:       h.log.With(zap.String("session_id", sessionID), zap.String("player_id", claims.PlayerID)),
	}

	if !h.hub.join(client) {
		client.closeConn("server shutting down")
		return
	}

	go client.writePump()
	go client.readPump()
}
