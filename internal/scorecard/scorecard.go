package scorecard

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
)

// Store persists finished holes.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record saves one finished hole. Replaying the same hole for the same player
// overwrites the earlier row.
func (s *Store) Record(ctx context.Context, r models.HoleResult) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hole_results (session_id, player_id, player_name, hole, level_slug, strokes, penalties, par, created_at)
		VALUES (:session_id, :player_id, :player_name, :hole, :level_slug, :strokes, :penalties, :par, NOW())
		ON CONFLICT (session_id, player_id, hole) DO UPDATE SET
			strokes = EXCLUDED.strokes,
			penalties = EXCLUDED.penalties,
			level_slug = EXCLUDED.level_slug,
			par = EXCLUDED.par`, r)
	if err != nil {
		return fmt.Errorf("record hole %d for %s: %w", r.Hole, r.PlayerID, err)
	}
	return nil
}

// ForSession returns every recorded hole of a session, by hole then player.
func (s *Store) ForSession(ctx context.Context, sessionID string) ([]models.HoleResult, error) {
	out := []models.HoleResult{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, session_id, player_id, player_name, hole, level_slug, strokes, penalties, par, created_at
		FROM hole_results WHERE session_id=$1 ORDER BY hole, player_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("scorecard %s: %w", sessionID, err)
	}
	return out, nil
}

// Totals sums strokes per player over results.
func Totals(results []models.HoleResult) map[string]int {
	totals := make(map[string]int)
	for _, r := range results {
		totals[r.PlayerID] += r.Strokes
	}
	return totals
}
