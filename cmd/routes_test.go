package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tomatoService/internal/auth"
	"tomatoService/internal/clock"
	"tomatoService/internal/config"
	"tomatoService/internal/events"
	"tomatoService/internal/history"
	"tomatoService/internal/platform"
)

func newTestApp(t *testing.T, a *auth.Auth) *App {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := events.NewHub()
	go hub.Start(ctx)

	alarms := platform.NewAlarmManager()
	adapter := platform.NewAdapter(platform.NewMemoryStore(), alarms, hub)
	service := clock.NewTimerService(adapter)
	recorder := history.NewMemoryRecorder()
	service.SetCallbacks(nil, history.CompletionHook(recorder, time.Second))

	_, err := service.Initialize(ctx)
	require.NoError(t, err)

	app := &App{
		Config:   config.Default(),
		Service:  service,
		Adapter:  adapter,
		Alarms:   alarms,
		Hub:      hub,
		Recorder: recorder,
		Auth:     a,
	}
	t.Cleanup(func() {
		app.close(context.Background())
		cancel()
	})
	return app
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) clock.TimerState {
	t.Helper()
	var resp clock.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.State
}

func TestPing(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	rec := doJSON(t, routes, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMessagesFlow(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	rec := doJSON(t, routes, http.MethodPost, "/messages", map[string]any{"type": "GET_STATE"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.StatusIdle, decodeState(t, rec).Status)

	rec = doJSON(t, routes, http.MethodPost, "/messages", map[string]any{
		"type":    "START",
		"payload": map[string]int{"work": 30, "break": 5},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec)
	assert.Equal(t, clock.StatusRunning, state.Status)
	assert.Equal(t, int64(30*60_000), state.DurationMs)
	require.NotNil(t, state.EndAt)

	rec = doJSON(t, routes, http.MethodPost, "/messages", map[string]any{"type": "PAUSE"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state = decodeState(t, rec)
	assert.Equal(t, clock.StatusPaused, state.Status)
	assert.Nil(t, state.EndAt)
	require.NotNil(t, state.RemainingMs)

	rec = doJSON(t, routes, http.MethodPost, "/messages", map[string]any{"type": "RESET"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.StatusIdle, decodeState(t, rec).Status)
}

func TestMessagesUnknownTypeIsNoop(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	rec := doJSON(t, routes, http.MethodPost, "/messages", map[string]any{"type": "DANCE"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.CreateDefaultState(), decodeState(t, rec))
}

func TestMessagesInvalidJSON(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body auth.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid JSON", body.Error)
}

func TestPlaySoundMessage(t *testing.T) {
	app := newTestApp(t, nil)
	client, err := app.Hub.Connect()
	require.NoError(t, err)

	rec := doJSON(t, app.routes(), http.MethodPost, "/messages", map[string]any{"type": "PLAY_SOUND"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	select {
	case event := <-client.EventChan:
		assert.Equal(t, events.EventSound, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for sound event")
	}
}

func TestGetState(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	rec := doJSON(t, routes, http.MethodGet, "/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(25*60_000), resp.RemainingMs)
	assert.Equal(t, "25:00", resp.Display)
	assert.Equal(t, 0.0, resp.Progress)
}

func TestNotificationClick(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	rec := doJSON(t, routes, http.MethodPost, "/notifications/click", map[string]string{"id": "something-else"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.StatusIdle, decodeState(t, rec).Status)

	rec = doJSON(t, routes, http.MethodPost, "/notifications/click", map[string]string{"id": platform.NotificationID}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.StatusRunning, decodeState(t, rec).Status)
}

func TestStats(t *testing.T) {
	app := newTestApp(t, nil)
	require.NoError(t, app.Recorder.Record(context.Background(), clock.SegmentRecord{
		Mode: clock.ModeWork, DurationMs: 25 * 60_000, CompletedAt: time.Now(),
	}))

	rec := doJSON(t, app.routes(), http.MethodGet, "/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.WorkSegments)
	assert.Equal(t, 1, resp.TodayWorkSegments)
	assert.Equal(t, 100.0, resp.Productivity)
	require.Len(t, resp.Recent, 1)
	assert.Equal(t, clock.ModeWork, resp.Recent[0].Mode)
	assert.Equal(t, int64(25*60_000), resp.Recent[0].DurationMs)
}

func TestNewAppWithPassphraseHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.JWTSecret = "secret"
	cfg.APIPassphraseHash = string(hash)

	ctx, cancel := context.WithCancel(context.Background())
	app, err := newApp(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		app.close(context.Background())
		cancel()
	})
	require.NotNil(t, app.Auth)

	routes := app.routes()
	rec := doJSON(t, routes, http.MethodGet, "/state", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": "open sesame"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewAppWithoutAuth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app, err := newApp(ctx, config.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		app.close(context.Background())
		cancel()
	})

	assert.Nil(t, app.Auth)
	rec := doJSON(t, app.routes(), http.MethodGet, "/state", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConnectToDBStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	pool := connectToDB(ctx, "postgres://tomato@127.0.0.1:1/tomato?connect_timeout=1")
	assert.Nil(t, pool)
	assert.Less(t, time.Since(start), dbRetryDelay)
}

func TestAuthDisabledTokenRoute(t *testing.T) {
	routes := newTestApp(t, nil).routes()

	rec := doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": "x"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthEnabled(t *testing.T) {
	a, err := auth.New(auth.Config{Secret: "secret", Passphrase: "open sesame"})
	require.NoError(t, err)
	routes := newTestApp(t, a).routes()

	rec := doJSON(t, routes, http.MethodGet, "/state", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": "open sesame"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var token auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.Token)

	rec = doJSON(t, routes, http.MethodGet, "/state", nil, token.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, routes, http.MethodPost, "/messages", map[string]any{"type": "START"}, token.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.StatusRunning, decodeState(t, rec).Status)

	// Ping stays open
	rec = doJSON(t, routes, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPassphraseWhitespaceIsSignificant(t *testing.T) {
	a, err := auth.New(auth.Config{Secret: "secret", Passphrase: " open sesame "})
	require.NoError(t, err)
	routes := newTestApp(t, a).routes()

	rec := doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": " open sesame "}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": "open sesame"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	a, err := auth.New(auth.Config{Secret: "secret", Passphrase: "open sesame"})
	require.NoError(t, err)
	app := newTestApp(t, a)
	routes := app.routes()

	rec := doJSON(t, routes, http.MethodPost, "/auth/token", map[string]string{"passphrase": strings.Repeat("x", 300)}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body auth.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "passphrase")

	token, err := a.Login("open sesame")
	require.NoError(t, err)
	rec = doJSON(t, routes, http.MethodPost, "/notifications/click", map[string]string{"id": strings.Repeat("n", 65)}, token.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequester(t *testing.T) {
	a, err := auth.New(auth.Config{Secret: "secret", Passphrase: "open sesame"})
	require.NoError(t, err)
	token, err := a.Login("open sesame")
	require.NoError(t, err)

	var got string
	h := auth.RequireToken(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requester(r)
	}))
	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "owner", got)

	assert.Equal(t, "anonymous", requester(httptest.NewRequest(http.MethodPost, "/messages", nil)))
}
