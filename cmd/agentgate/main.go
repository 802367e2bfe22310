// Package main is the demo host binary for agentgate: it wires the Agent
// Runtime (pkg/agentrt) and the Trigger Gate (pkg/triggergate) behind a thin
// gin HTTP surface. Hosts embedding the core packages directly are not
// expected to look like this file; it exists to exercise the wiring end to
// end, the way the teacher's cmd/kandev unifies its own services into one
// process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kandev/agentgate/internal/common/config"
	"github.com/kandev/agentgate/internal/common/httpmw"
	"github.com/kandev/agentgate/internal/common/logger"
	"github.com/kandev/agentgate/internal/db/dialect"
	"github.com/kandev/agentgate/internal/events/bus"
	dbprovider "github.com/kandev/agentgate/internal/persistence"
	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/agentrt/cycle"
	"github.com/kandev/agentgate/pkg/agentrt/persistence"
	"github.com/kandev/agentgate/pkg/agentrt/runner"
	"github.com/kandev/agentgate/pkg/agentrt/statestore"
	"github.com/kandev/agentgate/pkg/agentrt/vfs"
	"github.com/kandev/agentgate/pkg/triggergate/dispatch"
	"github.com/kandev/agentgate/pkg/triggergate/security"
)

// server bundles the dependencies the gin handlers need.
type server struct {
	runner      *runner.Runner
	coordinator *persistence.Coordinator
	security    *security.Manager
	dispatcher  *dispatch.Adapter
	log         *logger.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting agentgate demo host")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		natsBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		eventBus = natsBus
		defer natsBus.Close()
	} else {
		eventBus = bus.NewMemoryEventBus(log)
	}

	store, dbCleanup, err := newStateStore(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize state store", zap.Error(err))
	}
	if dbCleanup != nil {
		defer dbCleanup()
	}

	runnerCfg := agentrt.RunnerConfig{
		MaxCycles:              cfg.Runner.MaxCycles,
		CycleDelay:             cfg.Runner.CycleDelay(),
		EventBufferSize:        cfg.Runner.EventBufferSize,
		CommandBufferSize:      cfg.Runner.CommandBufferSize,
		MaxConsecutiveFailures: cfg.Runner.MaxConsecutiveFailures,
	}
	r := runner.New(runnerCfg, agentrt.SystemClock{}, agentrt.UUIDGenerator{}, log, eventBus)
	coordinator := persistence.New(r, store, 0)

	secMgr := security.New(cfg.Security, nil)
	resolver := func(repository string, kind dispatch.ItemKind) (agentrt.AgentID, bool) {
		ids := r.List()
		if len(ids) == 0 {
			return "", false
		}
		return ids[0], true
	}
	dispatcher := dispatch.New(resolver, agentrt.SystemClock{})

	srv := &server{runner: r, coordinator: coordinator, security: secMgr, dispatcher: dispatcher, log: log}

	spawnDemoAgent(ctx, r, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), httpmw.RequestLogger(log, "agentgate"))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/agents", srv.listAgents)
	router.GET("/agents/:id", srv.getAgentStatus)
	router.POST("/agents/:id/stop", srv.stopAgent)
	router.POST("/webhook/trigger", srv.handleTriggerWebhook)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down agentgate")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := coordinator.ShutdownAll(shutdownCtx); err != nil {
		log.Error("error shutting down agents", zap.Error(err))
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
}

// newStateStore picks the persistence backend per spec §4.2's "alternative
// backend" allowance: the in-memory VFS by default, or a SQL-backed store
// (sqlite/postgres, via internal/persistence.Provide) when the host
// configures a database driver. The returned cleanup func is nil for the
// VFS backend and closes the underlying *sql.DB for the SQL backend.
func newStateStore(cfg *config.Config, log *logger.Logger) (statestore.Store, func() error, error) {
	if cfg.Database.Driver == "" {
		fs := vfs.New()
		store, err := statestore.NewVFSStore(fs, "/state", nil)
		return store, nil, err
	}

	conn, cleanup, err := dbprovider.Provide(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("provide database: %w", err)
	}
	driverName := dialect.SQLite3
	if cfg.Database.Driver == "postgres" {
		driverName = dialect.PGX
	}
	store, err := statestore.NewSQLStore(conn, driverName, nil)
	if err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("initialize sql state store: %w", err)
	}
	return store, cleanup, nil
}

// spawnDemoAgent registers a single demonstration economic agent so the
// HTTP surface has something to report on immediately after boot.
func spawnDemoAgent(ctx context.Context, r *runner.Runner, log *logger.Logger) {
	backends := agentrt.Backends{
		Wallet:      &demoWallet{balance: 100},
		Marketplace: newDemoMarketplace(3, 12.50),
		Compute:     &demoCompute{hours: 24},
	}
	cfg := agentrt.AgentConfig{
		Name:             "demo-agent",
		Backends:         backends,
		InitialBalance:   100,
		MaxTasksPerCycle: 2,
		CycleDelay:       time.Second,
	}
	policy := cycle.Policy{MaxTasksPerCycle: cfg.MaxTasksPerCycle}

	handle, err := r.Spawn(ctx, "demo-agent", cfg, policy, nil)
	if err != nil {
		log.Error("failed to spawn demo agent", zap.Error(err))
		return
	}
	log.Info("spawned demo agent", zap.String("agent_id", string(handle.ID)))
}
