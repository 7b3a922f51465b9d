package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:      "test",
		Secret:    "test-secret",
		JanusURL:  "ws://janus.test:8188",
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{CreatePerMinute: 2},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func clientCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" {
			return c
		}
	}
	t.Fatal("no client token cookie")
	return nil
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())

	w := do(t, r, http.MethodPost, "/api/room/create", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, int64(resp.RoomID), int64(1000))
	assert.LessOrEqual(t, int64(resp.RoomID), int64(9999))
	assert.NotEmpty(t, clientCookie(t, w).Value)
}

func TestCreateRoom_RateLimitedPerClient(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())

	first := do(t, r, http.MethodPost, "/api/room/create", "")
	require.Equal(t, http.StatusOK, first.Code)
	ct := clientCookie(t, first)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/room/create", "", ct).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/api/room/create", "", ct).Code)

	// another client has its own window
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/room/create", "").Code)
}

func TestJoinRoom(t *testing.T) {
	t.Parallel()
	rooms := app.NewRoomManager()
	r := SetupRouter(testConfig(), rooms)

	w := do(t, r, http.MethodPost, "/api/room/join", `{"room": 4821}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"room_id": 4821, "message": "Joined"}`, w.Body.String())
	assert.Zero(t, rooms.Recent())
}

func TestJoinRoom_FallsBackToSessionRoom(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())

	created := do(t, r, http.MethodPost, "/api/room/create", "")
	require.Equal(t, http.StatusOK, created.Code)
	var resp RoomResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	w := do(t, r, http.MethodPost, "/api/room/join", "", created.Result().Cookies()...)
	require.Equal(t, http.StatusOK, w.Code)
	var joined RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, resp.RoomID, joined.RoomID)

	// an explicit room wins and becomes the new session room
	w = do(t, r, http.MethodPost, "/api/room/join", `{"room": 77}`, created.Result().Cookies()...)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/api/room/join", "", w.Result().Cookies()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"room_id": 77, "message": "Joined"}`, w.Body.String())
}

func TestJoinRoom_NoBodyNoSession(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/room/join", "").Code)
}

func TestCreateRoom_UnaffectedByJoins(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/room/join", `{"room": 100000}`).Code)
	}
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/room/create", "").Code)
}

func TestJoinRoom_BadRequest(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())

	for _, body := range []string{`{}`, `{"room": "abc"}`, `not json`, `{"room": 0}`, `{"room": -3}`} {
		w := do(t, r, http.MethodPost, "/api/room/join", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), `"error"`, body)
	}
}

func TestJanusURL(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())

	w := do(t, r, http.MethodGet, "/api/janus-url", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"janus_url": "ws://janus.test:8188"}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	r := SetupRouter(testConfig(), app.NewRoomManager())
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	h := NewHandler(testConfig(), app.NewRoomManager())

	req := httptest.NewRequest(http.MethodOptions, "/api/room/create", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/janus-url", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoomRateLimiter_Window(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	rl := NewRoomRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRoomRateLimiter_Disabled(t *testing.T) {
	t.Parallel()
	rl := NewRoomRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("a"))
	}
}
