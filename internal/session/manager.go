package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	rediskeys "github.com/HenryAG36/online-mini-golf-sub000/internal/redis"
)

// Manager owns every live session on this node and runs their tick loops.
type Manager struct {
	opts    Options
	levels  LevelSource
	out     Broadcaster
	results ResultSink
	rdb     *redis.Client
	log     *zap.Logger

	group *errgroup.Group
	ctx   context.Context

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager whose sessions stop when ctx ends.
func NewManager(ctx context.Context, opts Options, src LevelSource, out Broadcaster, results ResultSink, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	group, gctx := errgroup.WithContext(ctx)
	return &Manager{
		opts:     opts.withDefaults(),
		levels:   src,
		out:      out,
		results:  results,
		log:      log,
		group:    group,
		ctx:      gctx,
		sessions: make(map[string]*Session),
	}
}

// UseRedis makes the manager advertise its sessions so other nodes can tell a
// remote session from a missing one.
func (m *Manager) UseRedis(rdb *redis.Client) { m.rdb = rdb }

func presenceKey(id string) string { return rediskeys.Key("session", id) }

// Create starts a session over the given level rotation. The first level is
// loaded and validated before the session exists.
func (m *Manager) Create(ctx context.Context, rotation []string) (*Session, error) {
	if len(rotation) == 0 {
		return nil, ErrNoLevels
	}
	first, err := m.levels.Get(ctx, rotation[0])
	if err != nil {
		return nil, fmt.Errorf("load first hole %s: %w", rotation[0], err)
	}
	if err := first.Course.Validate(); err != nil {
		return nil, fmt.Errorf("load first hole %s: %w", rotation[0], err)
	}

	id := uuid.NewString()
	s := newSession(id, rotation, first, m.opts, m.levels, m.out, m.results, m.log)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.advertise(ctx, s)
	m.group.Go(func() error { return s.run(m.ctx) })
	m.log.Info("session created", zap.String("session_id", id), zap.Strings("rotation", rotation))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id, reason string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Close(reason)
	if m.rdb != nil {
		if err := m.rdb.Del(context.Background(), presenceKey(id)).Err(); err != nil {
			m.log.Warn("failed to clear session presence", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Exists reports whether a session is live here or, with redis, on any node.
func (m *Manager) Exists(ctx context.Context, id string) bool {
	if _, err := m.Get(id); err == nil {
		return true
	}
	if m.rdb == nil {
		return false
	}
	n, err := m.rdb.Exists(ctx, presenceKey(id)).Result()
	if err != nil {
		m.log.Warn("session presence lookup failed", zap.String("session_id", id), zap.Error(err))
		return false
	}
	return n > 0
}

func (m *Manager) advertise(ctx context.Context, s *Session) {
	if m.rdb == nil {
		return
	}
	ttl := m.opts.IdleTimeout + time.Minute
	if err := m.rdb.Set(ctx, presenceKey(s.ID), strconv.FormatInt(time.Now().Unix(), 10), ttl).Err(); err != nil {
		m.log.Warn("failed to advertise session", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// Reap closes sessions that have been idle past the timeout and returns their ids.
func (m *Manager) Reap(now time.Time) []string {
	m.mu.RLock()
	var idle []string
	var live []*Session
	for id, s := range m.sessions {
		if s.IdleFor(now) >= m.opts.IdleTimeout {
			idle = append(idle, id)
		} else {
			live = append(live, s)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.log.Info("reaping idle session", zap.String("session_id", id))
		m.Remove(id, "idle timeout")
	}
	for _, s := range live {
		m.advertise(context.Background(), s)
	}
	return idle
}

// RunReaper sweeps idle sessions every interval until ctx ends.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	m.log.Info("session reaper started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("session reaper stopping")
			return nil
		case now := <-ticker.C:
			if reaped := m.Reap(now); len(reaped) > 0 {
				m.log.Info("reaped idle sessions", zap.Int("count", len(reaped)), zap.Int("remaining", m.Len()))
			}
		}
	}
}

// Shutdown closes every session and waits for their loops to exit.
func (m *Manager) Shutdown(reason string) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Remove(id, reason)
	}
	return m.group.Wait()
}

// Wait blocks until every session loop has returned.
func (m *Manager) Wait() error { return m.group.Wait() }
