package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/auth"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/scorecard"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/session"
)

const maxNameLength = 32

// Sessions is the part of the session manager the HTTP layer drives.
type Sessions interface {
	Create(ctx context.Context, rotation []string) (*session.Session, error)
	Get(id string) (*session.Session, error)
}

// Scores reads recorded holes.
type Scores interface {
	ForSession(ctx context.Context, sessionID string) ([]models.HoleResult, error)
}

// Deps groups what the session handlers share.
type Deps struct {
	Sessions Sessions
	Levels   levels.Source
	Scores   Scores
	Tokens   *auth.Issuer
	Log      *zap.Logger
}

type seat struct {
	SessionID string        `json:"session_id"`
	PlayerID  string        `json:"player_id"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	State     session.State `json:"state"`
}

func cleanName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", false
	}
	return name, true
}

// seatPlayer joins a fresh player and issues their token.
func (d Deps) seatPlayer(c *gin.Context, s *session.Session, name string, status int) {
	playerID := uuid.NewString()
	if err := s.Join(playerID, name); err != nil {
		d.sessionError(c, err)
		return
	}
	token, exp, err := d.Tokens.Issue(s.ID, playerID, name)
	if err != nil {
		d.Log.Error("issue player token", zap.String("session_id", s.ID), zap.Error(err))
		s.Leave(playerID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(status, seat{SessionID: s.ID, PlayerID: playerID, Token: token, ExpiresAt: exp, State: s.State()})
}

func (d Deps) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, session.ErrFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Session is full"})
	case errors.Is(err, session.ErrCourseComplete):
		c.JSON(http.StatusConflict, gin.H{"error": "No holes left in this session"})
	case errors.Is(err, session.ErrClosed):
		c.JSON(http.StatusGone, gin.H{"error": "Session has closed"})
	case errors.Is(err, session.ErrNoLevels), errors.Is(err, levels.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, levels.ErrInvalidLevel):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		d.Log.Error("session request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// authorize checks the caller holds a token for the session in the path.
func (d Deps) authorize(c *gin.Context) (*auth.Claims, bool) {
	claims, err := d.Tokens.Parse(auth.TokenFromRequest(c.Request))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Valid player token required"})
		return nil, false
	}
	if claims.SessionID != c.Param("id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Token is for another session"})
		return nil, false
	}
	return claims, true
}

// CreateSession starts a session and seats its creator. Without an explicit
// rotation every known level is played in course order.
func CreateSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name   string   `json:"name" binding:"required"`
			Levels []string `json:"levels"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Player name required."})
			return
		}
		name, ok := cleanName(req.Name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name must be 1-32 characters"})
			return
		}

		rotation := req.Levels
		if len(rotation) == 0 {
			all, err := d.Levels.List(c.Request.Context())
			if err != nil {
				d.Log.Error("list levels for rotation", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list levels"})
				return
			}
			for _, l := range all {
				rotation = append(rotation, l.Slug)
			}
		}

		s, err := d.Sessions.Create(c.Request.Context(), rotation)
		if err != nil {
			d.sessionError(c, err)
			return
		}
		d.seatPlayer(c, s, name, http.StatusCreated)
	}
}

// JoinSession seats another player. A caller that already holds a token for
// this session gets their seat back instead of a new one.
func JoinSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := d.Sessions.Get(c.Param("id"))
		if err != nil {
			d.sessionError(c, err)
			return
		}

		if raw := auth.TokenFromRequest(c.Request); raw != "" {
			if claims, err := d.Tokens.Parse(raw); err == nil && claims.SessionID == s.ID {
				if err := s.Join(claims.PlayerID, claims.Name); err != nil {
					d.sessionError(c, err)
					return
				}
				c.JSON(http.StatusOK, seat{
					SessionID: s.ID,
					PlayerID:  claims.PlayerID,
					Token:     raw,
					ExpiresAt: claims.ExpiresAt.Time,
					State:     s.State(),
				})
				return
			}
		}

		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Player name required."})
			return
		}
		name, ok := cleanName(req.Name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name must be 1-32 characters"})
			return
		}
		d.seatPlayer(c, s, name, http.StatusCreated)
	}
}

// GetSession returns the full session state.
func GetSession(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := d.Sessions.Get(c.Param("id"))
		if err != nil {
			d.sessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.State())
	}
}

// AdvanceHole moves the session to its next hole. Any seated player may call it.
func AdvanceHole(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := d.authorize(c)
		if !ok {
			return
		}
		s, err := d.Sessions.Get(c.Param("id"))
		if err != nil {
			d.sessionError(c, err)
			return
		}
		if !s.HasPlayer(claims.PlayerID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Player is not in this session"})
			return
		}

		st, err := s.AdvanceHole(c.Request.Context())
		if err != nil {
			d.sessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// GetScorecard returns the recorded holes of a session and per-player totals.
// It works after the session itself has closed.
func GetScorecard(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := d.Scores.ForSession(c.Request.Context(), c.Param("id"))
		if err != nil {
			d.Log.Error("load scorecard", zap.String("session_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scorecard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": c.Param("id"),
			"results":    results,
			"totals":     scorecard.Totals(results),
		})
	}
}
