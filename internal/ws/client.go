package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Inbound message types.
const (
	MsgAim       = "aim"
	MsgCancelAim = "cancel_aim"
	MsgShot      = "shot"
	MsgGetState  = "get_state"
	MsgError     = "error"
)

// ErrRemoteSession is returned to a client whose session runs on another node.
var ErrRemoteSession = errors.New("session is hosted on another node; this connection is read-only")

// WSMessage is one client request.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ShotData struct {
	Power float64 `json:"power"`
	Angle float64 `json:"angle"`
}

// Client represents a connected WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	playerID  string
	session   *session.Session // nil when the session lives on another node
	send      chan []byte
	log       *zap.Logger
}

func (c *Client) key() string { return c.sessionID + "/" + c.playerID }

func (c *Client) closeConn(reason string) {
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeWait))
	c.conn.Close()
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("websocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("websocket ping error", zap.Error(err))
				return
			}
		}
	}
}

// readPump reads client requests until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg WSMessage) {
	if msg.Type == MsgGetState {
		if c.session == nil {
			c.sendError(ErrRemoteSession.Error())
			return
		}
		c.hub.sendTo(c, c.session.State())
		return
	}

	if c.session == nil {
		c.sendError(ErrRemoteSession.Error())
		return
	}

	var err error
	switch msg.Type {
	case MsgAim:
		err = c.session.BeginAim(c.playerID)
	case MsgCancelAim:
		err = c.session.CancelAim(c.playerID)
	case MsgShot:
		var data ShotData
		if jerr := json.Unmarshal(msg.Data, &data); jerr != nil {
			c.sendError("Invalid shot data")
			return
		}
		err = c.session.Shoot(c.playerID, game.Shot{Power: data.Power, Angle: data.Angle})
	default:
		c.sendError("Unknown message type")
		return
	}
	if err != nil {
		c.sendError(err.Error())
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.hub.sendTo(c, map[string]string{"type": MsgError, "message": message})
}
