package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/httpserver"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/websocket"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/hub"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/config"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/logging"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/version"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/source/redissource"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/source/simulator"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/state"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupSource builds the configured heart-rate source plus any health checks
// it contributes and a cleanup func.
func setupSource(cfg *config.Config, clock clockwork.Clock, m *metrics.SourceMetrics) (domain.Source, []httpserver.HealthCheck, func()) {
	switch cfg.Source {
	case config.SourceRedis:
		client, err := redissource.NewClient(cfg.RedisURL, m)
		if err != nil {
			slog.Error("Failed to create Redis client", "error", err)
			os.Exit(1)
		}
		src := redissource.New(client, clock, redissource.Options{
			Channel:     cfg.RedisChannel,
			IdleTimeout: cfg.RedisIdleTimeout,
		}, m)
		checks := []httpserver.HealthCheck{{Name: "redis", Check: src.Ping}}
		return src, checks, func() { _ = client.Close() }

	default:
		src := simulator.New(clock, simulator.Options{
			Interval: cfg.SimulatorInterval,
			Session:  cfg.SimulatorSession,
			Baseline: cfg.SimulatorBaseline,
		}, m)
		return src, nil, func() {}
	}
}

func hubCheck(h *hub.Hub) func(context.Context) error {
	return func(context.Context) error {
		switch s := h.State(); s {
		case hub.StateIdle, hub.StateStopped:
			return fmt.Errorf("hub is %s", s)
		default:
			return nil
		}
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"version", version.Get().String(),
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"source", cfg.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	hubMetrics := metrics.NewHubMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)
	sourceMetrics := metrics.NewSourceMetrics(reg)

	source, sourceChecks, closeSource := setupSource(cfg, clock, sourceMetrics)
	defer closeSource()

	store := state.NewStore()
	h := hub.NewHub(source, store, clock, hub.Options{
		SubscriberBuffer:    cfg.HubSubscriberBuffer,
		MaxConsecutiveDrops: cfg.HubMaxConsecutiveDrops,
		ReconnectDelay:      cfg.ReconnectDelay,
		MaxBackoff:          cfg.ReconnectMaxBackoff,
	}, hubMetrics)

	limits := websocket.NewConnectionLimits(clock,
		int64(cfg.MaxWebSocketConnections),
		cfg.MaxWebSocketConnectionsPerIP,
		cfg.WebSocketConnectRate,
		cfg.WebSocketConnectBurst,
	)
	live := websocket.NewHandler(h, clock, websocket.Options{
		PushCurrent:    cfg.WSPushCurrent,
		AllowedOrigins: cfg.AllowedOrigins(),
		Limits:         limits,
	}, wsMetrics)

	checks := append([]httpserver.HealthCheck{{Name: "hub", Check: hubCheck(h)}}, sourceChecks...)
	srv := httpserver.NewServer(cfg, clock, store, h, live.Handle, reg, httpMetrics, checks)

	// The hub outlives the HTTP server during shutdown so open live channels
	// receive a close frame.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.Run(hubCtx); err != nil {
			return fmt.Errorf("hub: %w", err)
		}
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		stopHub()
		if waitErr := live.Wait(shutdownCtx); waitErr != nil {
			slog.Warn("Live channel connections did not close in time", "error", waitErr)
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
