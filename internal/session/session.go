package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrFull           = errors.New("session is full")
	ErrUnknownPlayer  = errors.New("player is not in this session")
	ErrCourseComplete = errors.New("no holes left in this session")
	ErrClosed         = errors.New("session closed")
	ErrNoLevels       = errors.New("session needs at least one level")
)

// Broadcaster delivers a message to every client watching a session.
type Broadcaster interface {
	Broadcast(sessionID string, msg any)
}

// LevelSource resolves a level slug.
type LevelSource interface {
	Get(ctx context.Context, slug string) (levels.Level, error)
}

// ResultSink records finished holes.
type ResultSink interface {
	Record(ctx context.Context, r models.HoleResult) error
}

type discard struct{}

func (discard) Broadcast(string, any) {}

// Options tune every session a manager creates.
type Options struct {
	Physics        game.Physics
	TickInterval   time.Duration
	BroadcastEvery int
	MaxPlayers     int
	IdleTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second / 60
	}
	if o.BroadcastEvery <= 0 {
		o.BroadcastEvery = 1
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = 4
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Minute
	}
	return o
}

type player struct {
	id        string
	name      string
	sim       *game.Simulation
	strokes   int
	penalties int
	holed     bool
	contacts  []game.Contact
}

func (p *player) view() PlayerView {
	b := p.sim.Ball()
	return PlayerView{
		ID:        p.id,
		Name:      p.name,
		State:     p.sim.State(),
		Position:  b.Position,
		Velocity:  b.Velocity,
		Radius:    b.Radius,
		Roll:      b.Roll,
		Strokes:   p.strokes,
		Penalties: p.penalties,
	}
}

// Session is one group of players working through a rotation of holes. Each
// player owns a simulation of the current hole; every tick each simulation
// sees the other balls as read-only snapshots.
type Session struct {
	ID        string
	CreatedAt time.Time

	opts    Options
	levels  LevelSource
	out     Broadcaster
	results ResultSink
	log     *zap.Logger

	mu         sync.Mutex
	rotation   []string
	hole       int
	level      levels.Level
	players    map[string]*player
	order      []string
	tick       uint64
	lastActive time.Time
	closed     bool
	completed  bool

	stop     chan struct{}
	stopOnce sync.Once
}

func newSession(id string, rotation []string, first levels.Level, opts Options, src LevelSource, out Broadcaster, results ResultSink, log *zap.Logger) *Session {
	if out == nil {
		out = discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		opts:       opts.withDefaults(),
		levels:     src,
		out:        out,
		results:    results,
		log:        log.With(zap.String("session_id", id)),
		rotation:   append([]string(nil), rotation...),
		level:      first,
		players:    make(map[string]*player),
		lastActive: now,
		stop:       make(chan struct{}),
	}
}

func (s *Session) touch() { s.lastActive = time.Now() }

// Join seats a player on the current hole. Joining again with the same id
// keeps the existing ball.
func (s *Session) Join(playerID, name string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.players[playerID]; ok {
		s.touch()
		s.mu.Unlock()
		return nil
	}
	if len(s.players) >= s.opts.MaxPlayers {
		s.mu.Unlock()
		return ErrFull
	}

	sim, err := game.NewSimulation(s.level.Course, s.opts.Physics)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start hole %s: %w", s.level.Slug, err)
	}
	if len(s.order) > 0 {
		sim.SyncPhases(s.players[s.order[0]].sim.Phases())
	}
	s.players[playerID] = &player{id: playerID, name: name, sim: sim}
	s.order = append(s.order, playerID)
	s.touch()
	s.mu.Unlock()

	s.log.Info("player joined", zap.String("player_id", playerID))
	s.out.Broadcast(s.ID, Event{Type: MsgPlayerJoined, SessionID: s.ID, PlayerID: playerID, Name: name})
	return nil
}

// Leave removes a player and their ball.
func (s *Session) Leave(playerID string) {
	s.mu.Lock()
	if _, ok := s.players[playerID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.players, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	complete := s.completeLocked()
	s.mu.Unlock()

	s.log.Info("player left", zap.String("player_id", playerID))
	s.out.Broadcast(s.ID, Event{Type: MsgPlayerLeft, SessionID: s.ID, PlayerID: playerID})
	if complete != nil {
		s.out.Broadcast(s.ID, *complete)
	}
}

// HasPlayer reports whether playerID holds a seat.
func (s *Session) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[playerID]
	return ok
}

// act runs fn on the player's simulation under the session lock.
func (s *Session) act(playerID string, fn func(p *player) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p, ok := s.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if err := fn(p); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Session) BeginAim(playerID string) error {
	err := s.act(playerID, func(p *player) error { return p.sim.BeginAim() })
	if err == nil {
		s.out.Broadcast(s.ID, Event{Type: MsgAiming, SessionID: s.ID, PlayerID: playerID})
	}
	return err
}

func (s *Session) CancelAim(playerID string) error {
	err := s.act(playerID, func(p *player) error { return p.sim.CancelAim() })
	if err == nil {
		s.out.Broadcast(s.ID, Event{Type: MsgAimCancelled, SessionID: s.ID, PlayerID: playerID})
	}
	return err
}

// Shoot launches the player's ball and counts the stroke.
func (s *Session) Shoot(playerID string, shot game.Shot) error {
	var strokes, hole int
	err := s.act(playerID, func(p *player) error {
		if err := p.sim.Shoot(shot); err != nil {
			return err
		}
		p.strokes++
		strokes, hole = p.strokes, s.hole+1
		return nil
	})
	if err != nil {
		return err
	}
	s.out.Broadcast(s.ID, Event{Type: MsgShot, SessionID: s.ID, PlayerID: playerID, Hole: hole, Shot: &shot, Strokes: strokes})
	return nil
}

// Step advances every ball by one tick, then sends what happened.
func (s *Session) Step() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.tick++
	dt := s.opts.TickInterval.Seconds()

	// holed balls have left the green
	snaps := make([]game.Snapshot, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		if p.holed {
			continue
		}
		snap := p.sim.Snapshot()
		snap.PlayerID = id
		snaps = append(snaps, snap)
	}

	var events []Event
	var finished []models.HoleResult
	for _, id := range s.order {
		p := s.players[id]
		opponents := make([]game.Snapshot, 0, len(snaps))
		for _, snap := range snaps {
			if snap.PlayerID != id {
				opponents = append(opponents, snap)
			}
		}
		p.sim.SetOpponents(opponents)

		res := p.sim.Tick(dt)
		ev, result := s.observe(p, res)
		events = append(events, ev...)
		if result != nil {
			finished = append(finished, *result)
		}
	}

	if e := s.completeLocked(); e != nil {
		events = append(events, *e)
	}

	var snapshot *Snapshot
	if s.tick%uint64(s.opts.BroadcastEvery) == 0 && len(s.order) > 0 {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	for _, e := range events {
		s.out.Broadcast(s.ID, e)
	}
	if snapshot != nil {
		s.out.Broadcast(s.ID, *snapshot)
	}
	for _, r := range finished {
		s.record(r)
	}
}

// observe turns one tick result into client events and, when the ball
// dropped, the hole result to persist.
func (s *Session) observe(p *player, res game.TickResult) ([]Event, *models.HoleResult) {
	p.contacts = append(p.contacts, res.Events.Contacts...)
	pos := res.Ball.Position
	base := Event{SessionID: s.ID, PlayerID: p.id, Hole: s.hole + 1, Tick: s.tick, Position: &pos}

	var out []Event
	if res.Events.NonFinite {
		s.log.Warn("non-finite ball state discarded", zap.String("player_id", p.id), zap.Uint64("tick", s.tick))
	}
	if res.Events.MissingTeleportPair {
		s.log.Warn("teleporter without a pair", zap.String("player_id", p.id), zap.String("level", s.level.Slug))
	}
	if res.Events.Teleported {
		e := base
		e.Type = MsgTeleported
		e.ObstacleID = res.Events.TeleportFrom
		e.TargetID = res.Events.TeleportTo
		out = append(out, e)
	}

	switch {
	case res.Holed:
		p.holed = true
		e := base
		e.Type = MsgHoled
		e.Strokes = p.strokes
		e.Penalties = p.penalties
		e.Par = s.level.Par
		out = append(out, e)
		return out, &models.HoleResult{
			SessionID:  s.ID,
			PlayerID:   p.id,
			PlayerName: p.name,
			Hole:       s.hole + 1,
			LevelSlug:  s.level.Slug,
			Strokes:    p.strokes,
			Penalties:  p.penalties,
			Par:        s.level.Par,
		}
	case res.Hazard:
		if res.PenaltyStroke {
			p.strokes++
			p.penalties++
		}
		e := base
		e.Type = MsgWater
		e.ObstacleID = res.Events.WaterID
		e.Strokes = p.strokes
		e.Penalties = p.penalties
		out = append(out, e)
	case res.Transitioned && res.Previous == game.StateRolling && res.State == game.StateResting:
		e := base
		e.Type = MsgStopped
		e.Strokes = p.strokes
		out = append(out, e)
	}
	return out, nil
}

// completeLocked marks the hole complete the first time every seated ball is down.
func (s *Session) completeLocked() *Event {
	if s.completed || !s.allHoled() {
		return nil
	}
	s.completed = true
	return &Event{Type: MsgHoleComplete, SessionID: s.ID, Hole: s.hole + 1, Tick: s.tick}
}

func (s *Session) allHoled() bool {
	for _, p := range s.players {
		if !p.holed {
			return false
		}
	}
	return len(s.players) > 0
}

func (s *Session) record(r models.HoleResult) {
	if s.results == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.results.Record(ctx, r); err != nil {
			s.log.Error("failed to record hole", zap.String("player_id", r.PlayerID), zap.Int("hole", r.Hole), zap.Error(err))
		}
	}()
}

func (s *Session) phasesLocked() map[string]game.Phase {
	if len(s.order) == 0 {
		return map[string]game.Phase{}
	}
	return s.players[s.order[0]].sim.Phases()
}

func (s *Session) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Type:      MsgSnapshot,
		SessionID: s.ID,
		Tick:      s.tick,
		Hole:      s.hole + 1,
		Balls:     make([]PlayerView, 0, len(s.order)),
		Phases:    s.phasesLocked(),
	}
	for _, id := range s.order {
		p := s.players[id]
		snap.Balls = append(snap.Balls, p.view())
		for _, c := range p.contacts {
			snap.Contacts = append(snap.Contacts, ContactView{PlayerID: id, Contact: c})
		}
		p.contacts = p.contacts[:0]
	}
	return snap
}

func (s *Session) stateLocked() State {
	st := State{
		Type:      MsgState,
		SessionID: s.ID,
		Hole:      s.hole + 1,
		Holes:     len(s.rotation),
		Level: LevelView{
			Slug:        s.level.Slug,
			Name:        s.level.Name,
			Par:         s.level.Par,
			Fingerprint: s.level.Fingerprint,
		},
		Course:    s.level.Course,
		Players:   make([]PlayerView, 0, len(s.order)),
		Phases:    s.phasesLocked(),
		Tick:      s.tick,
		CreatedAt: s.CreatedAt,
	}
	for _, id := range s.order {
		st.Players = append(st.Players, s.players[id].view())
	}
	return st
}

// State returns the full session picture.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// AdvanceHole moves every player to the next hole of the rotation, discarding
// the current balls and obstacle phases.
func (s *Session) AdvanceHole(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrClosed
	}
	next := s.hole + 1
	if next >= len(s.rotation) {
		s.mu.Unlock()
		s.out.Broadcast(s.ID, Event{Type: MsgCourseComplete, SessionID: s.ID, Hole: next})
		return State{}, ErrCourseComplete
	}
	slug := s.rotation[next]
	s.mu.Unlock()

	lvl, err := s.levels.Get(ctx, slug)
	if err != nil {
		return State{}, fmt.Errorf("load hole %d (%s): %w", next+1, slug, err)
	}
	if err := lvl.Course.Validate(); err != nil {
		return State{}, fmt.Errorf("load hole %d (%s): %w", next+1, slug, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrClosed
	}
	if s.hole+1 != next {
		// someone else advanced while the level loaded
		st := s.stateLocked()
		s.mu.Unlock()
		return st, nil
	}
	for _, id := range s.order {
		p := s.players[id]
		if err := p.sim.ResetHole(lvl.Course); err != nil {
			s.mu.Unlock()
			return State{}, fmt.Errorf("reset hole for %s: %w", id, err)
		}
		p.strokes, p.penalties, p.holed = 0, 0, false
		p.contacts = p.contacts[:0]
	}
	s.hole = next
	s.level = lvl
	s.completed = false
	s.touch()
	st := s.stateLocked()
	s.mu.Unlock()

	s.log.Info("hole started", zap.Int("hole", next+1), zap.String("level", slug))
	s.out.Broadcast(s.ID, Event{Type: MsgHoleStarted, SessionID: s.ID, Hole: next + 1, State: &st})
	return st, nil
}

// IdleFor reports how long the session has gone without player input.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}

// Close stops the tick loop and tells clients why.
func (s *Session) Close(reason string) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stop)
		s.log.Info("session closed", zap.String("reason", reason))
		s.out.Broadcast(s.ID, Event{Type: MsgSessionClosed, SessionID: s.ID, Message: reason})
	})
}

// run ticks the session at its fixed interval until closed or ctx ends.
func (s *Session) run(ctx context.Context) error {
	t := time.NewTicker(s.opts.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close("server shutting down")
			return nil
		case <-s.stop:
			return nil
		case <-t.C:
			s.Step()
		}
	}
}
