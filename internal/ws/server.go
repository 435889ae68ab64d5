package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dedale/desktop/internal/config"
	"github.com/dedale/desktop/internal/mobilesync"
	"github.com/dedale/desktop/internal/store"
)

const maxBodyBytes = 1 << 20

// Server is the desktop control API: the webview channel, the sync command
// endpoints and first-launch account setup.
type Server struct {
	manager         *mobilesync.Manager
	store           *store.Store
	broadcaster     *Broadcaster
	gatherer        prometheus.Gatherer
	embeddedHandler http.Handler
	logger          *slog.Logger
	allowedOrigins  map[string]bool
	allowedHosts    map[string]bool
	authToken       string
}

func NewServer(cfg *config.Config, manager *mobilesync.Manager, st *store.Store, broadcaster *Broadcaster, gatherer prometheus.Gatherer, embeddedHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager:         manager,
		store:           st,
		broadcaster:     broadcaster,
		gatherer:        gatherer,
		embeddedHandler: embeddedHandler,
		logger:          logger.With("component", "api"),
		allowedOrigins:  make(map[string]bool),
		allowedHosts:    make(map[string]bool),
		authToken:       cfg.Server.AuthToken,
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/teams", s.handleTeams)
	mux.HandleFunc("/api/sync/push", s.handlePush)
	mux.HandleFunc("/api/sync/receive", s.handleReceive)
	mux.HandleFunc("/api/sync/planning", s.handlePlanning)
	mux.HandleFunc("/api/sync/terminate", s.handleTerminate)
	mux.HandleFunc("/api/sync/events/", s.handleEventRoutes)
	mux.HandleFunc("/api/auth/first-launch", s.handleFirstLaunch)
	mux.HandleFunc("/api/auth/admin", s.handleCreateAdmin)
	mux.HandleFunc("/api/auth/verify", s.handleVerify)

	if s.gatherer != nil {
		metrics := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			if !s.authorize(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			metrics.ServeHTTP(w, r)
		})
	}

	if s.embeddedHandler != nil {
		s.logger.Info("serving embedded webview")
		mux.Handle("/", s.embeddedHandler)
	}
}

// Handler returns the routed API wrapped with security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("webview upgrade failed", "error", err)
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		s.logger.Warn("webview rejected", "remote", r.RemoteAddr, "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	s.logger.Info("webview connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			s.logger.Info("webview disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Sessions())
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		http.Error(w, "eventId is required", http.StatusBadRequest)
		return
	}
	teams, err := s.store.Teams(r.Context(), eventID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

type pushRequest struct {
	EventIDs []string `json:"eventIds"`
}

type receiveRequest struct {
	EventID string `json:"eventId"`
}

type planningRequest struct {
	TeamID string `json:"teamId"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	b, err := s.manager.StartPushSession(req.EventIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.EventID == "" {
		http.Error(w, "eventId is required", http.StatusBadRequest)
		return
	}
	b, err := s.manager.StartReceiveSession(req.EventID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handlePlanning(w http.ResponseWriter, r *http.Request) {
	var req planningRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.TeamID == "" {
		http.Error(w, "teamId is required", http.StatusBadRequest)
		return
	}
	b, err := s.manager.StartPlanningSession(r.Context(), req.TeamID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.manager.Terminate(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEventRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Parse: /api/sync/events/{id}/send
	path := strings.TrimPrefix(r.URL.Path, "/api/sync/events/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] != "send" || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	eventID, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.manager.SendEvent(ctx, eventID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleFirstLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	first, err := s.store.IsFirstLaunch(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"firstLaunch": first})
}

func (s *Server) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !s.decodePost(w, r, &c) {
		return
	}
	if err := s.store.CreateInitialAdmin(r.Context(), c.Username, c.Password); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !s.decodePost(w, r, &c) {
		return
	}
	ok, err := s.store.VerifyCredentials(r.Context(), c.Username, c.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodePost authorizes r, checks it is a POST and decodes its JSON body
// into v. It writes the error response itself and reports whether to go on.
func (s *Server) decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var bindErr *mobilesync.BindError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mobilesync.ErrNoMobile),
		errors.Is(err, mobilesync.ErrNoSession),
		errors.Is(err, store.ErrAdminExists):
		status = http.StatusConflict
	case errors.Is(err, store.ErrEventNotFound),
		errors.Is(err, store.ErrTeamNotFound):
		status = http.StatusNotFound
	case errors.Is(err, mobilesync.ErrManagerClosed):
		status = http.StatusServiceUnavailable
	case errors.As(err, &bindErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorPayload{Message: err.Error()})
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Dedale-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}
	if host == r.Host {
		return true
	}

	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ListenAndServe serves handler on addr until ctx ends, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
