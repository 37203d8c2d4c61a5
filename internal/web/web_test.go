package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"statuswatch/internal/config"
	"statuswatch/internal/session"
	"statuswatch/internal/web"
)

type staticSessions []*session.Session

func (s staticSessions) CachedSessions() []*session.Session { return s }

func newTestServer(cfg *config.Config) http.Handler {
	return web.NewServer(cfg, staticSessions{
		session.New("alice@example.com", "alice@chat.example.com", nil, nil, "|"),
	}).Handler()
}

func TestHealth(t *testing.T) {
	h := newTestServer(config.DefaultConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestSessionsSnapshot(t *testing.T) {
	h := newTestServer(config.DefaultConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var views []struct {
		Identity string `json:"identity"`
		Account  string `json:"account"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(views) != 1 || views[0].Account != "alice@chat.example.com" {
		t.Errorf("views = %+v", views)
	}
}

func TestBasicAuthGuardsAPIButNotHealth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "ops", Password: "secret"}
	h := newTestServer(cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /api/sessions = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.SetBasicAuth("ops", "secret")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated /api/sessions = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health = %d, want 200 without auth", rec.Code)
	}
}
