package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/api/handlers"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/auth"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/config"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/game"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/models"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/session"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeScores struct{ results []models.HoleResult }

func (f fakeScores) ForSession(_ context.Context, id string) ([]models.HoleResult, error) {
	var out []models.HoleResult
	for _, r := range f.results {
		if r.SessionID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

type seat struct {
	SessionID string        `json:"session_id"`
	PlayerID  string        `json:"player_id"`
	Token     string        `json:"token"`
	State     session.State `json:"state"`
}

func newRouter(t *testing.T, scores handlers.Scores) (*gin.Engine, *session.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	cat := levels.NewCatalog([]levels.Level{
		{Slug: "cup", Name: "Cup", Par: 2, Position: 1, Course: game.Course{
			Tee:  game.Vec2{X: 300, Y: 300},
			Hole: game.Hole{Position: game.Vec2{X: 300, Y: 300}, Radius: 12},
		}},
		{Slug: "long", Name: "Long", Par: 4, Position: 2, Course: game.Course{
			Tee:  game.Vec2{X: 50, Y: 50},
			Hole: game.Hole{Position: game.Vec2{X: 900, Y: 50}, Radius: 12},
		}},
	})
	mgr := session.NewManager(ctx, session.Options{MaxPlayers: 2}, cat, nil, nil, nil)
	t.Cleanup(func() {
		cancel()
		_ = mgr.Wait()
	})

	r := gin.New()
	SetupRoutes(r, Server{
		Config: &config.Config{Environment: "test", FrontendURL: "https://golf.example.com"},
		Handlers: handlers.Deps{
			Sessions: mgr,
			Levels:   cat,
			Scores:   scores,
			Tokens:   auth.NewIssuer("secret", time.Hour),
		},
		LiveCount: mgr.Len,
	})
	return r, mgr
}

func do(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndLevels(t *testing.T) {
	r, _ := newRouter(t, fakeScores{})

	w := do(r, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])

	w = do(r, http.MethodGet, "/api/v1/levels", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Levels []models.LevelSummary `json:"levels"`
	}](t, w)
	require.Len(t, list.Levels, 2)
	assert.Equal(t, "cup", list.Levels[0].Slug)

	w = do(r, http.MethodGet, "/api/v1/levels/long", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[levels.Level](t, w).Par)

	w = do(r, http.MethodGet, "/api/v1/levels/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSession(t *testing.T) {
	r, mgr := newRouter(t, fakeScores{})

	w := do(r, http.MethodPost, "/api/v1/sessions", map[string]any{"name": "Ann"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	s := decode[seat](t, w)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, 2, s.State.Holes)
	assert.Equal(t, "cup", s.State.Level.Slug)
	require.Len(t, s.State.Players, 1)
	assert.Equal(t, s.PlayerID, s.State.Players[0].ID)
	assert.Equal(t, 1, mgr.Len())

	w = do(r, http.MethodGet, "/api/v1/sessions/"+s.SessionID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", decode[session.State](t, w).Players[0].Name)

	w = do(r, http.MethodPost, "/api/v1/sessions", map[string]any{"name": "Ann", "levels": []string{"long"}}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[seat](t, w).State.Holes)
}

func TestCreateSessionRejects(t *testing.T) {
	r, _ := newRouter(t, fakeScores{})

	cases := []struct {
		name string
		body any
		want int
	}{
		{"no name", map[string]any{}, http.StatusBadRequest},
		{"blank name", map[string]any{"name": "   "}, http.StatusBadRequest},
		{"unknown level", map[string]any{"name": "Ann", "levels": []string{"nope"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, do(r, http.MethodPost, "/api/v1/sessions", tc.body, "").Code)
		})
	}
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/sessions/ghost", nil, "").Code)
}

func TestJoinSession(t *testing.T) {
	r, _ := newRouter(t, fakeScores{})
	host := decode[seat](t, do(r, http.MethodPost, "/api/v1/sessions", map[string]any{"name": "Ann"}, ""))
	path := "/api/v1/sessions/" + host.SessionID + "/join"

	w := do(r, http.MethodPost, path, map[string]any{"name": "Bo"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	guest := decode[seat](t, w)
	assert.NotEqual(t, host.PlayerID, guest.PlayerID)
	assert.Len(t, guest.State.Players, 2)

	// rejoining with a token keeps the seat
	w = do(r, http.MethodPost, path, nil, guest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, guest.PlayerID, decode[seat](t, w).PlayerID)

	w = do(r, http.MethodPost, path, map[string]any{"name": "Cy"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/v1/sessions/ghost/join", map[string]any{"name": "Cy"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvanceHole(t *testing.T) {
	r, _ := newRouter(t, fakeScores{})
	host := decode[seat](t, do(r, http.MethodPost, "/api/v1/sessions", map[string]any{"name": "Ann"}, ""))
	other := decode[seat](t, do(r, http.MethodPost, "/api/v1/sessions", map[string]any{"name": "Zed"}, ""))
	path := "/api/v1/sessions/" + host.SessionID + "/advance"

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, path, nil, "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, path, nil, other.Token).Code)

	w := do(r, http.MethodPost, path, nil, host.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[session.State](t, w)
	assert.Equal(t, 2, st.Hole)
	assert.Equal(t, "long", st.Level.Slug)
	assert.Equal(t, game.Vec2{X: 50, Y: 50}, st.Players[0].Position)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, path, nil, host.Token).Code)
}

func TestScorecard(t *testing.T) {
	r, _ := newRouter(t, fakeScores{results: []models.HoleResult{
		{SessionID: "s1", PlayerID: "a", Hole: 1, Strokes: 3},
		{SessionID: "s1", PlayerID: "a", Hole: 2, Strokes: 4},
		{SessionID: "s1", PlayerID: "b", Hole: 1, Strokes: 2},
		{SessionID: "s2", PlayerID: "a", Hole: 1, Strokes: 9},
	}})

	w := do(r, http.MethodGet, "/api/v1/sessions/s1/scorecard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	card := decode[struct {
		Results []models.HoleResult `json:"results"`
		Totals  map[string]int      `json:"totals"`
	}](t, w)
	assert.Len(t, card.Results, 3)
	assert.Equal(t, map[string]int{"a": 7, "b": 2}, card.Totals)
}
