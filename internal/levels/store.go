package levels

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
	rkeys "github.com/HenryAG36/online-mini-golf-sub000/internal/redis"
)

const defaultCacheTTL = 10 * time.Minute

// Store keeps levels in Postgres and caches decoded levels in Redis. A nil
// Redis client disables the cache.
type Store struct {
	db  *sqlx.DB
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewStore(db *sqlx.DB, rdb *redis.Client, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, rdb: rdb, ttl: defaultCacheTTL, log: log}
}

func cacheKey(slug string) string {
	return rkeys.Key("level", slug)
}

// Upsert writes a level and drops its cached copy. It reports whether the
// stored geometry changed.
func (s *Store) Upsert(ctx context.Context, l Level) (bool, error) {
	course, err := json.Marshal(l.Course)
	if err != nil {
		return false, fmt.Errorf("encode course %s: %w", l.Slug, err)
	}

	var previous sql.NullString
	err = s.db.GetContext(ctx, &previous, `SELECT fingerprint FROM levels WHERE slug=$1`, l.Slug)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read level %s: %w", l.Slug, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO levels (slug, name, par, position, fingerprint, course, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			par = EXCLUDED.par,
			position = EXCLUDED.position,
			fingerprint = EXCLUDED.fingerprint,
			course = EXCLUDED.course,
			updated_at = NOW()`,
		l.Slug, l.Name, l.Par, l.Position, l.Fingerprint, course)
	if err != nil {
		return false, fmt.Errorf("upsert level %s: %w", l.Slug, err)
	}

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, cacheKey(l.Slug)).Err(); err != nil {
			s.log.Warn("cache invalidation failed", zap.String("slug", l.Slug), zap.Error(err))
		}
	}
	return !previous.Valid || previous.String != l.Fingerprint, nil
}

// List returns every level without geometry, in play order.
func (s *Store) List(ctx context.Context) ([]models.LevelSummary, error) {
	var out []models.LevelSummary
	err := s.db.SelectContext(ctx, &out,
		`SELECT slug, name, par, position, fingerprint FROM levels ORDER BY position, slug`)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return out, nil
}

// Get returns one level, from cache when possible.
func (s *Store) Get(ctx context.Context, slug string) (Level, error) {
	if l, ok := s.cached(ctx, slug); ok {
		return l, nil
	}

	var row models.Level
	err := s.db.GetContext(ctx, &row,
		`SELECT id, slug, name, par, position, fingerprint, course, created_at, updated_at FROM levels WHERE slug=$1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return Level{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	if err != nil {
		return Level{}, fmt.Errorf("get level %s: %w", slug, err)
	}

	l, err := fromRow(row)
	if err != nil {
		return Level{}, err
	}
	s.cache(ctx, l)
	return l, nil
}

func fromRow(row models.Level) (Level, error) {
	l := Level{
		Slug:        row.Slug,
		Name:        row.Name,
		Par:         row.Par,
		Position:    row.Position,
		Fingerprint: row.Fingerprint,
	}
	if err := row.Course.Unmarshal(&l.Course); err != nil {
		return Level{}, fmt.Errorf("%w: %s: stored course: %v", ErrInvalidLevel, row.Slug, err)
	}
	if err := l.Course.Validate(); err != nil {
		return Level{}, fmt.Errorf("%w: %s: %w", ErrInvalidLevel, row.Slug, err)
	}
	return l, nil
}

func (s *Store) cached(ctx context.Context, slug string) (Level, bool) {
	if s.rdb == nil {
		return Level{}, false
	}
	b, err := s.rdb.Get(ctx, cacheKey(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache read failed", zap.String("slug", slug), zap.Error(err))
		}
		return Level{}, false
	}
	var l Level
	if err := json.Unmarshal(b, &l); err != nil {
		s.log.Warn("dropping corrupt cache entry", zap.String("slug", slug), zap.Error(err))
		s.rdb.Del(ctx, cacheKey(slug))
		return Level{}, false
	}
	return l, true
}

func (s *Store) cache(ctx context.Context, l Level) {
	if s.rdb == nil {
		return
	}
	b, err := json.Marshal(l)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(l.Slug), b, s.ttl).Err(); err != nil {
		s.log.Warn("cache write failed", zap.String("slug", l.Slug), zap.Error(err))
	}
}
