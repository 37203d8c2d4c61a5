package zulip_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"statuswatch/internal/directory"
	"statuswatch/internal/zulip"
)

// newServer builds an httptest Zulip with one active user and an
// in-memory status.
func newServer(t *testing.T) (*httptest.Server, *map[string]string) {
	t.Helper()
	status := map[string]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/{email}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("email") != "jane@corp.example" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"result": "error", "msg": "No such user"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": "success",
			"user": map[string]any{
				"user_id": 42, "email": "jane@corp.example",
				"full_name": "Jane", "is_active": true,
			},
		})
	})
	mux.HandleFunc("GET /api/v1/users/42/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": "success",
			"status": map[string]any{"status_text": status["text"], "emoji_name": status["emoji"]},
		})
	})
	mux.HandleFunc("POST /api/v1/users/me/status", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"result": "error", "msg": "unauthorized"})
			return
		}
		r.ParseForm()
		status["text"] = r.PostFormValue("status_text")
		status["emoji"] = r.PostFormValue("emoji_name")
		json.NewEncoder(w).Encode(map[string]any{"result": "success"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &status
}

func TestSinkRoundTrip(t *testing.T) {
	srv, status := newServer(t)
	client := zulip.NewClient(srv.URL, "bot@corp.example", "token")
	factory := &zulip.SinkFactory{Client: client}

	sink, probe := factory.SinkFor(context.Background(), "jane@corp.example")
	if probe != directory.ProbeLive {
		t.Fatalf("probe = %v, want live", probe)
	}

	st, ok, err := sink.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if ok {
		t.Errorf("expected no status yet, got %+v", st)
	}

	st.Text = "Back soon | In office"
	st.EmojiName = "office"
	if err := sink.SetStatus(context.Background(), st); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if (*status)["text"] != "Back soon | In office" {
		t.Errorf("server status = %q, want written text", (*status)["text"])
	}

	got, ok, err := sink.GetStatus(context.Background())
	if err != nil || !ok {
		t.Fatalf("GetStatus after write: ok=%v err=%v", ok, err)
	}
	if got.Text != "Back soon | In office" {
		t.Errorf("Text = %q, want round-tripped text", got.Text)
	}
}

func TestSinkForUnknownUserIsUnreachable(t *testing.T) {
	srv, _ := newServer(t)
	factory := &zulip.SinkFactory{Client: zulip.NewClient(srv.URL, "bot@corp.example", "token")}

	_, probe := factory.SinkFor(context.Background(), "ghost@corp.example")
	if probe != directory.ProbeUnreachable {
		t.Errorf("probe = %v, want unreachable for an authoritative miss", probe)
	}
}

func TestSinkForTransportErrorIsUnknown(t *testing.T) {
	srv, _ := newServer(t)
	srv.Close() // force connection errors
	factory := &zulip.SinkFactory{Client: zulip.NewClient(srv.URL, "bot@corp.example", "token")}

	_, probe := factory.SinkFor(context.Background(), "jane@corp.example")
	if probe != directory.ProbeUnknown {
		t.Errorf("probe = %v, want unknown for a transport error", probe)
	}
}
