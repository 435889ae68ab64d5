package mobilesync

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/dedale/desktop/internal/session"
)

type Options struct {
	// ListenHost is the bind address for session listeners; empty binds
	// every interface.
	ListenHost string
	// AdvertiseHost overrides the address encoded in the QR code.
	AdvertiseHost string
	QRSize        int
	EventQueue    int
	WriteTimeout  time.Duration
	ReadLimit     int64

	Notifier Notifier
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Manager is the command surface of mobile sync. It starts session
// listeners and routes desktop commands to the current push session.
type Manager struct {
	data     DataSource
	registry *Registry
	sessions *session.Store
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
	opts     Options

	upgrader websocket.Upgrader
	pickPort func() int

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[string]*listener
	closed    bool
	wg        sync.WaitGroup
}

func NewManager(data DataSource, registry *Registry, sessions *session.Store, opts Options) *Manager {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		data:     data,
		registry: registry,
		sessions: sessions,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("component", "mobilesync"),
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Mobile clients are native apps on the LAN and send no
			// browser origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pickPort:  RandomPort,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[string]*listener),
	}
}

func newSessionID() string {
	return ulid.Make().String()
}

// runner drives one accepted connection for a listener variant.
type runner func(ctx context.Context, l *link, remote string)

type listener struct {
	m       *Manager
	id      string
	variant session.Variant
	target  []string
	port    int
	srv     *http.Server
	run     runner

	mu      sync.Mutex
	claimed bool
}

// StartPushSession opens a listener for a push session over eventIDs.
func (m *Manager) StartPushSession(eventIDs []string) (Bootstrap, error) {
	ids := append([]string(nil), eventIDs...)
	return m.listen(session.Push, ids, func(ctx context.Context, l *link, remote string) {
		h := newHandle(l.id, m.opts.EventQueue)
		if prev := m.registry.Set(h); prev != nil {
			l.logger.Info("push session supersedes previous one", "previous", prev.ID())
		}
		s := &pushSession{link: l, handle: h, eventIDs: ids}
		s.run(ctx, remote)
	})
}

// StartReceiveSession opens a listener that accepts one mobile export.
func (m *Manager) StartReceiveSession(eventID string) (Bootstrap, error) {
	return m.listen(session.Receive, []string{eventID}, func(ctx context.Context, l *link, remote string) {
		s := &receiveSession{link: l, eventID: eventID}
		s.run(ctx, remote)
	})
}

// StartPlanningSession opens a listener that hands teamID its planning.
// An unknown team fails here, before anything is bound.
func (m *Manager) StartPlanningSession(ctx context.Context, teamID string) (Bootstrap, error) {
	if _, err := m.data.TeamPlanning(ctx, teamID); err != nil {
		return Bootstrap{}, err
	}
	return m.listen(session.Planning, []string{teamID}, func(ctx context.Context, l *link, remote string) {
		s := &planningSession{link: l, teamID: teamID}
		s.run(ctx, remote)
	})
}

// SendEvent pushes the current snapshot of eventID to the connected push
// session.
func (m *Manager) SendEvent(ctx context.Context, eventID string) error {
	if m.registry.Current() == nil {
		return ErrNoMobile
	}
	e, err := m.data.TransferEvent(ctx, eventID)
	if err != nil {
		return err
	}
	return m.registry.PushEvent(ctx, e)
}

// Terminate asks the connected push session to close.
func (m *Manager) Terminate() error {
	return m.registry.Terminate()
}

// Sessions returns the lifecycle records, oldest first.
func (m *Manager) Sessions() []*session.Info {
	return m.sessions.GetAll()
}

func (m *Manager) listen(variant session.Variant, target []string, run runner) (Bootstrap, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return Bootstrap{}, ErrManagerClosed
	}

	host, err := ResolveHost(m.opts.AdvertiseHost)
	if err != nil {
		return Bootstrap{}, &BindError{Op: "resolve", Err: err}
	}

	addr := net.JoinHostPort(m.opts.ListenHost, strconv.Itoa(m.pickPort()))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Bootstrap{}, &BindError{Op: "listen", Addr: addr, Err: err}
	}
	port := ln.Addr().(*net.TCPAddr).Port
	uri := SessionURI(host, port)

	qr, err := EncodeQR(uri, m.opts.QRSize)
	if err != nil {
		ln.Close()
		return Bootstrap{}, &BindError{Op: "qr", Addr: uri, Err: err}
	}

	l := &listener{
		m:       m,
		id:      newSessionID(),
		variant: variant,
		target:  target,
		port:    port,
		run:     run,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", l.accept)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		ln.Close()
		return Bootstrap{}, ErrManagerClosed
	}
	m.listeners[l.id] = l
	m.mu.Unlock()

	m.sessions.Update(l.record(l.id))
	m.metrics.listenerUp()
	m.logger.Info("session listener started", "session_id", l.id, "variant", string(variant), "port", port, "uri", uri)

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("session listener stopped", "session_id", l.id, "error", err)
		}
	}()

	return Bootstrap{SessionID: l.id, URI: uri, Port: port, QR: qr}, nil
}

func (l *listener) record(id string) *session.Info {
	return &session.Info{
		ID:        id,
		Variant:   l.variant,
		Port:      l.port,
		Target:    l.target,
		State:     session.Connecting,
		StartedAt: time.Now(),
	}
}

// claimID hands the listener's own record to its first connection and a
// fresh one to any later connection.
func (l *listener) claimID() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.claimed {
		l.claimed = true
		return l.id, true
	}
	return newSessionID(), false
}

func (l *listener) accept(w http.ResponseWriter, r *http.Request) {
	m := l.m
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("mobile upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if !m.track() {
		conn.Close()
		return
	}

	id, first := l.claimID()
	if !first {
		m.sessions.Update(l.record(id))
	}
	p := newPeer(conn, m.opts.WriteTimeout, m.opts.ReadLimit, m.logger)
	lk := m.newLink(id, l.variant, p)

	go func() {
		defer m.wg.Done()
		l.run(m.ctx, lk, r.RemoteAddr)
	}()
}

// track registers a session goroutine unless the manager is closing.
func (m *Manager) track() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.wg.Add(1)
	return true
}

// Close stops every listener, says goodbye to every live session and waits
// for them to finish.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	var errs []error
	now := time.Now()
	for _, l := range listeners {
		if err := l.srv.Close(); err != nil {
			errs = append(errs, err)
		}
		m.metrics.listenerDown()
		l.mu.Lock()
		unclaimed := !l.claimed
		l.claimed = true
		l.mu.Unlock()
		if unclaimed {
			m.sessions.Mutate(l.id, func(i *session.Info) { i.Close(session.ReasonShutdown, now) })
		}
	}

	m.cancel()
	m.wg.Wait()
	return errors.Join(errs...)
}
