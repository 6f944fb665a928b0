package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Level is one stored hole. Course holds the validated engine course as JSON.
type Level struct {
	ID          int            `db:"id" json:"id"`
	Slug        string         `db:"slug" json:"slug"`
	Name        string         `db:"name" json:"name"`
	Par         int            `db:"par" json:"par"`
	Position    int            `db:"position" json:"position"`
	Fingerprint string         `db:"fingerprint" json:"fingerprint"`
	Course      types.JSONText `db:"course" json:"course"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// LevelSummary is the listing view of a level, without geometry.
type LevelSummary struct {
	Slug        string `db:"slug" json:"slug"`
	Name        string `db:"name" json:"name"`
	Par         int    `db:"par" json:"par"`
	Position    int    `db:"position" json:"position"`
	Fingerprint string `db:"fingerprint" json:"fingerprint"`
}

// HoleResult is one player's finished hole within a session.
type HoleResult struct {
	ID         int       `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	PlayerID   string    `db:"player_id" json:"player_id"`
	PlayerName string    `db:"player_name" json:"player_name"`
	Hole       int       `db:"hole" json:"hole"`
	LevelSlug  string    `db:"level_slug" json:"level_slug"`
	Strokes    int       `db:"strokes" json:"strokes"`
	Penalties  int       `db:"penalties" json:"penalties"`
	Par        int       `db:"par" json:"par"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
