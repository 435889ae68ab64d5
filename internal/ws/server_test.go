package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dedale/desktop/internal/config"
	"github.com/dedale/desktop/internal/logging"
	"github.com/dedale/desktop/internal/mobilesync"
	"github.com/dedale/desktop/internal/session"
	"github.com/dedale/desktop/internal/store"
	"github.com/dedale/desktop/internal/transfer"
)

const testToken = "secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()

	st, err := store.Open(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateEvent(ctx, transfer.Event{ID: "E1", Name: "Trail", StartDate: "2024-06-01", EndDate: "2024-06-02"}); err != nil {
		t.Fatal(err)
	}

	sessions := session.NewStore()
	b := NewBroadcaster(sessions, 10*time.Millisecond, time.Hour, 0, logger)
	t.Cleanup(b.Stop)

	reg := prometheus.NewRegistry()
	m := mobilesync.NewManager(st, mobilesync.NewRegistry(), sessions, mobilesync.Options{
		ListenHost:    "127.0.0.1",
		AdvertiseHost: "127.0.0.1",
		EventQueue:    4,
		WriteTimeout:  time.Second,
		Notifier:      b,
		Metrics:       mobilesync.NewMetrics(reg),
		Logger:        logger,
	})
	t.Cleanup(func() { m.Close() })

	cfg := config.Default()
	cfg.Server.AuthToken = testToken
	return NewServer(cfg, m, st, b, reg, nil, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	securityHeaders(inner).ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Content-Security-Policy": "default-src 'self'; img-src 'self' data:",
	}

	for header, expected := range want {
		if got := rec.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
}

func TestAuthorize(t *testing.T) {
	s := &Server{authToken: testToken}

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  bool
	}{
		{"no credentials", func(*http.Request) {}, false},
		{"query token", func(r *http.Request) { r.URL.RawQuery = "token=" + testToken }, true},
		{"header token", func(r *http.Request) { r.Header.Set("X-Dedale-Token", testToken) }, true},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+testToken) }, true},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, false},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+testToken) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			tt.setup(r)
			if got := s.authorize(r); got != tt.want {
				t.Errorf("authorize() = %v, want %v", got, tt.want)
			}
		})
	}

	open := &Server{}
	if !open.authorize(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Error("empty token should allow every request")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin", nil, "", true},
		{"localhost", nil, "http://localhost:5173", true},
		{"loopback v6", nil, "http://[::1]:8080", true},
		{"same host", nil, "http://example.com", true},
		{"foreign", nil, "http://evil.test", false},
		{"allowed list exact", []string{"https://app.dedale.test"}, "https://app.dedale.test", true},
		{"allowed list host", []string{"https://app.dedale.test"}, "http://app.dedale.test", true},
		{"allowed list excludes localhost", []string{"https://app.dedale.test"}, "http://localhost:5173", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Server.AllowedOrigins = tt.allowed
			s := NewServer(cfg, nil, nil, nil, nil, nil, logging.Discard())

			r := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := s.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestUnauthorized(t *testing.T) {
	h := newTestServer(t).Handler()
	for _, path := range []string{"/api/sessions", "/api/sync/push", "/api/sync/events/E1/send", "/metrics"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", path, rec.Code)
		}
	}
}

func TestSyncCommandErrors(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"send without mobile", http.MethodPost, "/api/sync/events/E1/send", "", http.StatusConflict},
		{"terminate without session", http.MethodPost, "/api/sync/terminate", "", http.StatusConflict},
		{"planning unknown team", http.MethodPost, "/api/sync/planning", `{"teamId":"nope"}`, http.StatusNotFound},
		{"planning without team", http.MethodPost, "/api/sync/planning", `{}`, http.StatusBadRequest},
		{"receive without event", http.MethodPost, "/api/sync/receive", `{}`, http.StatusBadRequest},
		{"push wrong method", http.MethodGet, "/api/sync/push", "", http.StatusMethodNotAllowed},
		{"push bad body", http.MethodPost, "/api/sync/push", `{`, http.StatusBadRequest},
		{"event route unknown", http.MethodPost, "/api/sync/events/E1/delete", "", http.StatusNotFound},
		{"teams without event", http.MethodGet, "/api/teams", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestPushAndSendEvent(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/api/sync/push", `{"eventIds":["E1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("push = %d: %s", rec.Code, rec.Body.String())
	}
	var b mobilesync.Bootstrap
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(b.URI, "ws://127.0.0.1:") || !strings.HasPrefix(b.QR, "data:image/png;base64,") {
		t.Fatalf("bootstrap = %+v", b)
	}

	rec = do(t, h, http.MethodGet, "/api/sessions", "")
	var infos []*session.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].ID != b.SessionID || infos[0].State != session.Connecting {
		t.Fatalf("sessions = %s", rec.Body.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(b.URI, nil)
	if err != nil {
		t.Fatalf("dial mobile: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil || hello["type"] != "connected" {
		t.Fatalf("hello = %v, err = %v", hello, err)
	}

	if rec := do(t, h, http.MethodPost, "/api/sync/events/E1/send", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("send = %d: %s", rec.Code, rec.Body.String())
	}
	var ev map[string]any
	if err := conn.ReadJSON(&ev); err != nil || ev["type"] != "event" {
		t.Fatalf("event frame = %v, err = %v", ev, err)
	}

	if rec := do(t, h, http.MethodPost, "/api/sync/events/missing/send", ""); rec.Code != http.StatusNotFound {
		t.Errorf("send missing = %d, want 404", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/sync/terminate", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("terminate = %d", rec.Code)
	}
	var bye map[string]any
	if err := conn.ReadJSON(&bye); err != nil || bye["type"] != "goodbye" {
		t.Fatalf("goodbye = %v, err = %v", bye, err)
	}

	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "dedale_sync_events_sent_total 1") {
		t.Errorf("metrics = %d, missing events_sent_total", rec.Code)
	}
}

func TestAccountSetup(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodGet, "/api/auth/first-launch", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"firstLaunch":true`) {
		t.Fatalf("first-launch = %d %s", rec.Code, rec.Body.String())
	}

	admin := `{"username":"admin","password":"hunter22"}`
	if rec := do(t, h, http.MethodPost, "/api/auth/admin", admin); rec.Code != http.StatusCreated {
		t.Fatalf("create admin = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/api/auth/admin", admin); rec.Code != http.StatusConflict {
		t.Errorf("second admin = %d, want 409", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/auth/verify", admin); rec.Code != http.StatusNoContent {
		t.Errorf("verify = %d, want 204", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/auth/verify", `{"username":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("verify wrong password = %d, want 401", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/auth/first-launch", "")
	if !strings.Contains(rec.Body.String(), `"firstLaunch":false`) {
		t.Errorf("first-launch after setup = %s", rec.Body.String())
	}
}

func TestWebviewChannel(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + testToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial webview: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != MsgSnapshot {
		t.Fatalf("first message = %s, want snapshot", msg.Type)
	}

	if _, err := s.manager.StartReceiveSession("E1"); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MsgDelta {
		t.Errorf("message after start = %s, want delta", msg.Type)
	}
}
