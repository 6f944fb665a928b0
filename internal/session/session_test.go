package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
)

type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recorder) Broadcast(_ string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) events(typ string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, m := range r.msgs {
		if e, ok := m.(Event); ok && e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Snapshot
	for _, m := range r.msgs {
		if s, ok := m.(Snapshot); ok {
			out = append(out, s)
		}
	}
	return out
}

type sink struct {
	mu      sync.Mutex
	results []models.HoleResult
}

func (s *sink) Record(_ context.Context, r models.HoleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *sink) all() []models.HoleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HoleResult(nil), s.results...)
}

var farHole = game.Hole{Position: game.Vec2{X: -1000, Y: -1000}, Radius: game.DefaultHoleRadius}

func testCatalog() *levels.Catalog {
	return levels.NewCatalog([]levels.Level{
		{
			Slug: "cup", Name: "Cup", Par: 2, Position: 1,
			Course: game.Course{
				Tee:  game.Vec2{X: 300, Y: 300},
				Hole: game.Hole{Position: game.Vec2{X: 300, Y: 300}, Radius: 12},
			},
		},
		{
			Slug: "pond", Name: "Pond", Par: 3, Position: 2,
			Course: game.Course{
				Tee:  game.Vec2{X: 100, Y: 300},
				Hole: farHole,
				Obstacles: []game.Obstacle{
					{ID: "pond", Kind: game.KindWater, Shape: game.RectShape(400, 250, 100, 100)},
				},
			},
		},
		{
			Slug: "mill", Name: "Mill", Par: 3, Position: 3,
			Course: game.Course{
				Tee:  game.Vec2{X: 50, Y: 50},
				Hole: farHole,
				Obstacles: []game.Obstacle{
					{ID: "mill", Kind: game.KindWindmill, Shape: game.CircleShape(300, 300, 40), Speed: 1.5},
				},
			},
		},
	})
}

func testOptions() Options {
	return Options{
		Physics:        game.DefaultPhysics(),
		TickInterval:   time.Second / 60,
		BroadcastEvery: 1,
		MaxPlayers:     2,
		IdleTimeout:    time.Minute,
	}
}

func newTestSession(t *testing.T, rotation ...string) (*Session, *recorder, *sink) {
	t.Helper()
	cat := testCatalog()
	first, err := cat.Get(context.Background(), rotation[0])
	require.NoError(t, err)
	rec, results := &recorder{}, &sink{}
	return newSession("s1", rotation, first, testOptions(), cat, rec, results, zap.NewNop()), rec, results
}

func stepUntil(t *testing.T, s *Session, rec *recorder, typ string) Event {
	t.Helper()
	for i := 0; i < 2000; i++ {
		s.Step()
		if evs := rec.events(typ); len(evs) > 0 {
			return evs[0]
		}
	}
	t.Fatalf("no %s event", typ)
	return Event{}
}

func TestJoinIsIdempotentAndBounded(t *testing.T) {
	s, rec, _ := newTestSession(t, "pond")

	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Join("b", "Bo"))
	assert.ErrorIs(t, s.Join("c", "Cy"), ErrFull)

	assert.Len(t, rec.events(MsgPlayerJoined), 2)
	st := s.State()
	require.Len(t, st.Players, 2)
	assert.Equal(t, "a", st.Players[0].ID)
	assert.Equal(t, game.Vec2{X: 100, Y: 300}, st.Players[0].Position)
	assert.True(t, s.HasPlayer("b"))

	s.Leave("b")
	assert.False(t, s.HasPlayer("b"))
	assert.Len(t, rec.events(MsgPlayerLeft), 1)
}

func TestUnknownPlayerIsRejected(t *testing.T) {
	s, _, _ := newTestSession(t, "pond")
	assert.ErrorIs(t, s.Shoot("ghost", game.Shot{Power: 5}), ErrUnknownPlayer)
	assert.ErrorIs(t, s.BeginAim("ghost"), ErrUnknownPlayer)
}

func TestAimThenCancel(t *testing.T) {
	s, rec, _ := newTestSession(t, "pond")
	require.NoError(t, s.Join("a", "Ann"))

	require.NoError(t, s.BeginAim("a"))
	assert.Equal(t, game.StateAiming, s.State().Players[0].State)
	require.NoError(t, s.CancelAim("a"))
	assert.Equal(t, game.StateResting, s.State().Players[0].State)
	assert.ErrorIs(t, s.CancelAim("a"), game.ErrIllegalTransition)

	assert.Len(t, rec.events(MsgAiming), 1)
	assert.Len(t, rec.events(MsgAimCancelled), 1)
}

func TestHoledBallIsRecorded(t *testing.T) {
	s, rec, results := newTestSession(t, "cup")
	require.NoError(t, s.Join("a", "Ann"))

	require.NoError(t, s.Shoot("a", game.Shot{Power: 1}))
	shots := rec.events(MsgShot)
	require.Len(t, shots, 1)
	assert.Equal(t, 1, shots[0].Strokes)

	s.Step()

	holed := rec.events(MsgHoled)
	require.Len(t, holed, 1)
	assert.Equal(t, 1, holed[0].Strokes)
	assert.Equal(t, 2, holed[0].Par)
	assert.Len(t, rec.events(MsgHoleComplete), 1)
	assert.ErrorIs(t, s.Shoot("a", game.Shot{Power: 3}), game.ErrIllegalTransition)

	require.Eventually(t, func() bool { return len(results.all()) == 1 }, time.Second, 10*time.Millisecond)
	r := results.all()[0]
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, "a", r.PlayerID)
	assert.Equal(t, "cup", r.LevelSlug)
	assert.Equal(t, 1, r.Hole)
	assert.Equal(t, 1, r.Strokes)

	// later ticks do not repeat the completion
	s.Step()
	assert.Len(t, rec.events(MsgHoleComplete), 1)
}

func TestWaterCostsAPenaltyStroke(t *testing.T) {
	s, rec, _ := newTestSession(t, "pond")
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Shoot("a", game.Shot{Power: 10}))

	ev := stepUntil(t, s, rec, MsgWater)
	assert.Equal(t, "pond", ev.ObstacleID)
	assert.Equal(t, 2, ev.Strokes)
	assert.Equal(t, 1, ev.Penalties)
	require.NotNil(t, ev.Position)
	assert.Equal(t, game.Vec2{X: 100, Y: 300}, *ev.Position)

	s.Step()
	p := s.State().Players[0]
	assert.Equal(t, game.StateResting, p.State)
	assert.Equal(t, 2, p.Strokes)
}

func TestStoppedBallIsAnnounced(t *testing.T) {
	s, rec, _ := newTestSession(t, "pond")
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Shoot("a", game.Shot{Power: 0.04}))

	s.Step()
	stopped := rec.events(MsgStopped)
	require.Len(t, stopped, 1)
	assert.Equal(t, "a", stopped[0].PlayerID)
	assert.Equal(t, uint64(1), stopped[0].Tick)
}

func TestSnapshotsAreThrottled(t *testing.T) {
	cat := testCatalog()
	first, err := cat.Get(context.Background(), "pond")
	require.NoError(t, err)
	opts := testOptions()
	opts.BroadcastEvery = 3
	rec := &recorder{}
	s := newSession("s1", []string{"pond"}, first, opts, cat, rec, nil, nil)
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Shoot("a", game.Shot{Power: 5}))

	for i := 0; i < 7; i++ {
		s.Step()
	}
	snaps := rec.snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, uint64(3), snaps[0].Tick)
	assert.Equal(t, uint64(6), snaps[1].Tick)
	require.Len(t, snaps[1].Balls, 1)
	assert.Greater(t, snaps[1].Balls[0].Position.X, 100.0)
}

func TestLateJoinerSharesObstaclePhases(t *testing.T) {
	s, _, _ := newTestSession(t, "mill")
	require.NoError(t, s.Join("a", "Ann"))
	for i := 0; i < 30; i++ {
		s.Step()
	}
	require.NoError(t, s.Join("b", "Bo"))

	pa := s.players["a"].sim.Phases()
	assert.NotZero(t, pa["mill"].Angle)
	assert.Equal(t, pa, s.players["b"].sim.Phases())

	s.Step()
	assert.Equal(t, s.players["a"].sim.Phases(), s.players["b"].sim.Phases())
}

func TestAdvanceHole(t *testing.T) {
	s, rec, _ := newTestSession(t, "cup", "pond")
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Shoot("a", game.Shot{Power: 1}))
	s.Step()

	st, err := s.AdvanceHole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Hole)
	assert.Equal(t, 2, st.Holes)
	assert.Equal(t, "pond", st.Level.Slug)
	require.Len(t, st.Players, 1)
	assert.Equal(t, game.StateResting, st.Players[0].State)
	assert.Equal(t, game.Vec2{X: 100, Y: 300}, st.Players[0].Position)
	assert.Zero(t, st.Players[0].Strokes)

	started := rec.events(MsgHoleStarted)
	require.Len(t, started, 1)
	require.NotNil(t, started[0].State)
	assert.Equal(t, "pond", started[0].State.Level.Slug)

	_, err = s.AdvanceHole(context.Background())
	assert.ErrorIs(t, err, ErrCourseComplete)
	assert.Len(t, rec.events(MsgCourseComplete), 1)
}

func TestAdvanceHoleWithMissingLevelKeepsCurrentHole(t *testing.T) {
	s, _, _ := newTestSession(t, "cup", "nowhere")
	require.NoError(t, s.Join("a", "Ann"))

	_, err := s.AdvanceHole(context.Background())
	assert.ErrorIs(t, err, levels.ErrNotFound)
	assert.Equal(t, 1, s.State().Hole)
	assert.Equal(t, "cup", s.State().Level.Slug)
}

func TestCloseStopsPlay(t *testing.T) {
	s, rec, _ := newTestSession(t, "pond")
	require.NoError(t, s.Join("a", "Ann"))

	s.Close("bye")
	s.Close("again")

	closed := rec.events(MsgSessionClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "bye", closed[0].Message)
	assert.ErrorIs(t, s.Shoot("a", game.Shot{Power: 5}), ErrClosed)
	assert.ErrorIs(t, s.Join("b", "Bo"), ErrClosed)
	_, err := s.AdvanceHole(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunTicksUntilClosed(t *testing.T) {
	s, rec, _ := newTestSession(t, "pond")
	require.NoError(t, s.Join("a", "Ann"))

	done := make(chan error, 1)
	go func() { done <- s.run(context.Background()) }()

	require.Eventually(t, func() bool { return len(rec.snapshots()) >= 2 }, time.Second, 5*time.Millisecond)
	s.Close("done")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after Close")
	}
}

func TestSharedTeeDoesNotDeflectShot(t *testing.T) {
	s, rec, results := newTestSession(t, "cup")
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Join("b", "Bo"))

	require.NoError(t, s.Shoot("a", game.Shot{Power: 1}))
	s.Step()

	holed := rec.events(MsgHoled)
	require.Len(t, holed, 1)
	assert.Equal(t, "a", holed[0].PlayerID)
	assert.Equal(t, 1, holed[0].Strokes)
	assert.Eventually(t, func() bool { return len(results.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestLeaveCompletesHole(t *testing.T) {
	s, rec, _ := newTestSession(t, "cup")
	require.NoError(t, s.Join("a", "Ann"))
	require.NoError(t, s.Join("b", "Bo"))

	require.NoError(t, s.Shoot("a", game.Shot{Power: 1}))
	s.Step()
	require.Len(t, rec.events(MsgHoled), 1)
	assert.Empty(t, rec.events(MsgHoleComplete))

	s.Leave("b")
	for i := 0; i < 10; i++ {
		s.Step()
	}
	complete := rec.events(MsgHoleComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, 1, complete[0].Hole)
}
