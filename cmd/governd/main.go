// Command governd is the governance engine's process entry point: it loads
// configuration, wires the five core components to a storage backend, and
// serves the HTTP API alongside the background health-monitor and
// audit-writer loops until signaled to stop.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/r3e-network/governance-core/internal/auditor"
	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/httpapi"
	"github.com/r3e-network/governance-core/internal/llmgateway"
	"github.com/r3e-network/governance-core/internal/logger"
	"github.com/r3e-network/governance-core/internal/metrics"
	"github.com/r3e-network/governance-core/internal/psmp"
	"github.com/r3e-network/governance-core/internal/securegw"
	"github.com/r3e-network/governance-core/internal/statemgr"
	"github.com/r3e-network/governance-core/internal/storage"
	"github.com/r3e-network/governance-core/internal/storage/memory"
	"github.com/r3e-network/governance-core/internal/storage/postgres"
	"github.com/r3e-network/governance-core/internal/watchdog"
)

func main() {
	cfg, err := config.Load("GOVERND")
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	log := logger.New(cfg.Logging)

	backend, closeBackend, err := buildBackend(cfg.Storage)
	if err != nil {
		log.Fatalf("build storage backend: %v", err)
	}
	defer closeBackend()

	m := metrics.New("governd")

	state := statemgr.NewManager(backend, log)
	engine := psmp.NewEngine(backend, state, cfg.Governance.Mode, log)

	audit := auditor.New(backend, cfg.Compliance, log)
	audit.SetMetrics(m)

	llm := llmgateway.NewFromConfig(cfg.LLM, defaultModel(cfg.LLM), log)
	llm.SetMetrics(m)

	gw := securegw.NewGateway(cfg.SecureGateway.Policy, cfg.Compliance.StrictAudit, llm, audit, log)

	wd := watchdog.New(30*time.Second, log)
	llm.SetHeartbeat(wd.Register("llm-health-monitor", 2*time.Minute, restartLogOnly(log, "llm-health-monitor")))
	audit.SetHeartbeat(wd.Register("audit-writer", 2*time.Minute, restartLogOnly(log, "audit-writer")))

	server := httpapi.New(state, engine, gw, llm, audit, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llm.Start(ctx)
	defer llm.Stop()

	wd.Start(ctx)
	defer wd.Stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Infof("governd listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}
	log.Info("governd stopped")
}

// buildBackend selects the storage backend named by cfg.Driver ("memory" or
// "postgres") and returns a close func safe to defer unconditionally.
func buildBackend(cfg config.StorageConfig) (storage.Backend, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		backend, err := postgres.Open(context.Background(), cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres backend: %w", err)
		}
		return backend, func() {
			_ = backend.Close(context.Background())
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// defaultModel picks the default model of the first local_runtime provider,
// in configuration order, that declares one, falling back to
// "local-default" when none does.
func defaultModel(cfg config.LLMConfig) string {
	for _, p := range cfg.Providers {
		if p.Kind == llmgateway.KindLocal && p.DefaultModel != "" {
			return p.DefaultModel
		}
	}
	return "local-default"
}

// restartLogOnly builds a watchdog restart callback for a loop that cannot
// be meaningfully restarted mid-process without losing in-flight state; it
// just logs so a stuck probe or writer surfaces instead of failing silently.
func restartLogOnly(log *logger.Logger, name string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log.WithField("loop", name).Warn("heartbeat stale; loop may be stuck")
		return nil
	}
}
