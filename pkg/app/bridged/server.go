// Package bridged implements app.Runner for the bridge daemon process.
package bridged

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/chainsafe/cknft-bridge/pkg/app/http"
	"github.com/chainsafe/cknft-bridge/pkg/config"
	"github.com/chainsafe/cknft-bridge/pkg/evm"
	"github.com/chainsafe/cknft-bridge/pkg/icledger"
	"github.com/chainsafe/cknft-bridge/pkg/orchestrator"
	"github.com/chainsafe/cknft-bridge/pkg/pgutil"
	"github.com/chainsafe/cknft-bridge/pkg/store"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the bridge daemon.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new bridge daemon server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("bridge daemon config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bridge daemon",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	runStore := store.NewStore(db)
	if err := runStore.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create run-history schema: %w", err)
	}

	session := orchestrator.NewSession(&cfg.EVM, logger)
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("connect EVM provider: %w", err)
	}
	defer session.Close()
	logger.Info("Connected to EVM provider",
		zap.String("rpc_url", cfg.EVM.RPCURL),
		zap.Int64("chain_id", session.ChainID()),
		zap.String("wallet", session.Address().Hex()))

	driver := evm.NewDriver(session.Client(), session.Client(), logger)

	ledger, err := icledger.NewClient(&cfg.Ledger, logger)
	if err != nil {
		return fmt.Errorf("create ledger client: %w", err)
	}
	logger.Info("Ledger service configured", zap.String("base_url", cfg.Ledger.BaseURL))

	orch := orchestrator.New(&cfg.Bridge, session, driver, ledger, runStore, logger)

	if cfg.Monitoring.Enabled {
		go s.serveMetrics(ctx, logger)
	}

	router := s.setupRouter(orch, runStore, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) setupRouter(orch *orchestrator.Orchestrator, history *store.Store, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	RegisterRoutes(r, orch, history, logger)

	return r
}

// serveMetrics exposes prometheus metrics on the dedicated monitoring port,
// keeping scrapes off the API middleware stack.
func (s *Server) serveMetrics(ctx context.Context, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Monitoring.MetricsPort),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics enabled", zap.Int("port", s.cfg.Monitoring.MetricsPort))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", zap.Error(err))
	}
}
