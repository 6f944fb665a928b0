package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
)

func newTestManager(t *testing.T) (*Manager, *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	m := NewManager(ctx, testOptions(), testCatalog(), rec, &sink{}, nil)
	t.Cleanup(func() {
		cancel()
		_ = m.Wait()
	})
	return m, rec
}

func TestManagerCreate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, nil)
	assert.ErrorIs(t, err, ErrNoLevels)

	_, err = m.Create(ctx, []string{"missing"})
	assert.ErrorIs(t, err, levels.ErrNotFound)

	s, err := m.Create(ctx, []string{"cup", "pond"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, m.Exists(ctx, s.ID))
	assert.False(t, m.Exists(ctx, "nope"))
}

func TestManagerReapsIdleSessions(t *testing.T) {
	m, rec := newTestManager(t)
	ctx := context.Background()

	idle, err := m.Create(ctx, []string{"pond"})
	require.NoError(t, err)

	reaped := m.Reap(time.Now())
	assert.Empty(t, reaped)

	reaped = m.Reap(time.Now().Add(2 * time.Minute))
	assert.Equal(t, []string{idle.ID}, reaped)
	assert.Zero(t, m.Len())

	closed := rec.events(MsgSessionClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "idle timeout", closed[0].Message)
}

func TestManagerShutdownStopsLoops(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(context.Background(), []string{"pond"})
	require.NoError(t, err)
	_, err = m.Create(context.Background(), []string{"cup"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Shutdown("maintenance") }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	assert.Zero(t, m.Len())
}

func TestManagerAdvertisesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m, _ := newTestManager(t)
	m.UseRedis(rdb)
	ctx := context.Background()

	s, err := m.Create(ctx, []string{"pond"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(presenceKey(s.ID)))

	// a session owned by another node is visible through redis only
	require.NoError(t, mr.Set(presenceKey("remote"), "1"))
	assert.True(t, m.Exists(ctx, "remote"))
	_, err = m.Get("remote")
	assert.ErrorIs(t, err, ErrNotFound)

	m.Remove(s.ID, "done")
	assert.False(t, mr.Exists(presenceKey(s.ID)))
}

func TestRunReaperStopsWithContext(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.RunReaper(ctx, 10*time.Millisecond) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
