package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/metrics"
	"github.com/rustyeddy/hedger/sim"
	"github.com/rustyeddy/hedger/store"
)

func newTestServer(t *testing.T, cfg *Config) (*Server, *store.SQLite) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	srv, err := NewServer(sim.New(st, sim.Options{Now: now}), st, zap.NewNop(), cfg)
	require.NoError(t, err)
	return srv, st
}

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil, nil, zap.NewNop(), nil)
	assert.Error(t, err)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = NewServer(sim.New(st, sim.Options{}), nil, nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	rec := serve(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	metrics.New().Observe("Save", "ok", 0, time.Millisecond)

	srv, _ := newTestServer(t, &Config{Metrics: true})
	rec := serve(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hedger_dispatch_total")

	srv, _ = newTestServer(t, &Config{})
	rec = serve(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveListAndEvents(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t, nil)
	ctx := context.Background()

	rec := serve(srv, http.MethodPost, "/api/v1/hedges", `{"bankEntity":"First National","hedgeType":"CashFlow"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved hedge.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, hedge.Draft, saved.HedgeState)

	rec = serve(srv, http.MethodGet, "/api/v1/hedges?state=Draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []hedge.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = serve(srv, http.MethodGet, "/api/v1/hedges?state=Designated", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	_, err := st.RecordEvent(ctx, store.Event{HedgeID: saved.ID, Action: "Designate", Actor: "alice"})
	require.NoError(t, err)
	rec = serve(srv, http.MethodGet, "/api/v1/hedges/"+saved.ID+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []store.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Actor)
}

func TestErrorStatuses(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)

	rec := serve(srv, http.MethodPost, "/api/v1/hedges", `{"bankEntity":"X"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved hedge.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"missing hedge", http.MethodGet, "/api/v1/hedges/nope", "", http.StatusNotFound},
		{"bad body", http.MethodPost, "/api/v1/hedges", `{`, http.StatusBadRequest},
		{"bad result type", http.MethodPost, "/api/v1/hedges/" + saved.ID + "/regressions?type=Weekly", `{}`, http.StatusBadRequest},
		{"wrong state", http.MethodPost, "/api/v1/hedges/" + saved.ID + "/redraft", "", http.StatusConflict},
		{"bad reason", http.MethodGet, "/api/v1/hedges/" + saved.ID + "/dedesignation?reason=Boredom", "", http.StatusUnprocessableEntity},
		{"no template", http.MethodPost, "/api/v1/hedges/" + saved.ID + "/designate", `{}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
