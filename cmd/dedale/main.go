// Command dedale runs the desktop side of Dedale: the SQLite store, the
// mobile sync manager and the control API with its embedded webview.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dedale/desktop/internal/config"
	"github.com/dedale/desktop/internal/frontend"
	"github.com/dedale/desktop/internal/logging"
	"github.com/dedale/desktop/internal/mobilesync"
	"github.com/dedale/desktop/internal/seed"
	"github.com/dedale/desktop/internal/session"
	"github.com/dedale/desktop/internal/store"
	"github.com/dedale/desktop/internal/ws"
)

const (
	broadcastThrottle = 100 * time.Millisecond
	snapshotInterval  = 30 * time.Second
	maxWebviewConns   = 16
	keepClosed        = 50
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	seedDemo := flag.Bool("seed", false, "Write the demo dataset before serving")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, *seedDemo, logger); err != nil {
		logger.Error("dedale stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, seedDemo bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return err
	}

	if seedDemo {
		if _, err := seed.NewGenerator(st, 1, logger).Seed(ctx); err != nil {
			st.Close()
			return err
		}
	}

	if cfg.Server.AuthToken == "" {
		token, err := config.GenerateToken()
		if err != nil {
			st.Close()
			return err
		}
		cfg.Server.AuthToken = token
		logger.Info("no server.auth_token configured, generated one for this run")
	}
	logger.Info("webview available", "url", "http://"+cfg.Addr()+"/?token="+cfg.Server.AuthToken)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions := session.NewStore()
	broadcaster := ws.NewBroadcaster(sessions, broadcastThrottle, snapshotInterval, maxWebviewConns, logger)

	manager := mobilesync.NewManager(st, mobilesync.NewRegistry(), sessions, mobilesync.Options{
		AdvertiseHost: cfg.Sync.AdvertiseHost,
		QRSize:        cfg.Sync.QRSize,
		EventQueue:    cfg.Sync.EventQueue,
		WriteTimeout:  cfg.Sync.WriteTimeout,
		ReadLimit:     cfg.Sync.ReadLimit,
		Notifier:      broadcaster,
		Metrics:       mobilesync.NewMetrics(reg),
		Logger:        logger,
	})

	go pruneClosed(ctx, sessions, logger)

	server := ws.NewServer(cfg, manager, st, broadcaster, reg, frontend.Handler(), logger)
	serveErr := ws.ListenAndServe(ctx, cfg.Addr(), server.Handler(), logger)

	logger.Info("shutting down")
	closeErr := manager.Close()
	broadcaster.Stop()
	return errors.Join(serveErr, closeErr, st.Close())
}

// pruneClosed keeps the session list shown in the webview bounded.
func pruneClosed(ctx context.Context, sessions *session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.PruneClosed(keepClosed); n > 0 {
				logger.Debug("pruned closed sessions", "count", n)
			}
		}
	}
}
