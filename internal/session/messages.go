package session

import (
	"time"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
)

// Message types sent to clients.
const (
	MsgState          = "state"
	MsgSnapshot       = "snapshot"
	MsgAiming         = "aiming"
	MsgAimCancelled   = "aim_cancelled"
	MsgShot           = "shot"
	MsgStopped        = "ball_stopped"
	MsgHoled          = "holed"
	MsgWater          = "water"
	MsgTeleported     = "teleported"
	MsgHoleComplete   = "hole_complete"
	MsgHoleStarted    = "hole_started"
	MsgPlayerJoined   = "player_joined"
	MsgPlayerLeft     = "player_left"
	MsgSessionClosed  = "session_closed"
	MsgCourseComplete = "course_complete"
)

// PlayerView is one ball as every client sees it.
type PlayerView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	State     game.BallState `json:"state"`
	Position  game.Vec2      `json:"position"`
	Velocity  game.Vec2      `json:"velocity"`
	Radius    float64        `json:"radius"`
	Roll      float64        `json:"roll"`
	Strokes   int            `json:"strokes"`
	Penalties int            `json:"penalties"`
}

type LevelView struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Par         int    `json:"par"`
	Fingerprint string `json:"fingerprint"`
}

// State is the full picture of a session, sent on join and on request.
type State struct {
	Type      string                `json:"type"`
	SessionID string                `json:"session_id"`
	Hole      int                   `json:"hole"`
	Holes     int                   `json:"holes"`
	Level     LevelView             `json:"level"`
	Course    game.Course           `json:"course"`
	Players   []PlayerView          `json:"players"`
	Phases    map[string]game.Phase `json:"phases"`
	Tick      uint64                `json:"tick"`
	CreatedAt time.Time             `json:"created_at"`
}

// ContactView is a collision of one player's ball, for sound and effects.
type ContactView struct {
	PlayerID string `json:"player_id"`
	game.Contact
}

// Snapshot is the throttled motion update.
type Snapshot struct {
	Type      string                `json:"type"`
	SessionID string                `json:"session_id"`
	Tick      uint64                `json:"tick"`
	Hole      int                   `json:"hole"`
	Balls     []PlayerView          `json:"balls"`
	Phases    map[string]game.Phase `json:"phases"`
	Contacts  []ContactView         `json:"contacts,omitempty"`
}

// Event is a discrete happening that is sent as soon as it occurs.
type Event struct {
	Type       string     `json:"type"`
	SessionID  string     `json:"session_id"`
	PlayerID   string     `json:"player_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Hole       int        `json:"hole,omitempty"`
	Tick       uint64     `json:"tick,omitempty"`
	Position   *game.Vec2 `json:"position,omitempty"`
	Shot       *game.Shot `json:"shot,omitempty"`
	Strokes    int        `json:"strokes,omitempty"`
	Penalties  int        `json:"penalties,omitempty"`
	Par        int        `json:"par,omitempty"`
	ObstacleID string     `json:"obstacle_id,omitempty"`
	TargetID   string     `json:"target_id,omitempty"`
	Message    string     `json:"message,omitempty"`
	State      *State     `json:"state,omitempty"`
}
