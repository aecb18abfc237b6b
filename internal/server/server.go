package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/arcify/spaces/internal/api/http"
	"github.com/arcify/spaces/internal/api/middleware"
	"github.com/arcify/spaces/internal/api/ws"
	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/browser/memhost"
	"github.com/arcify/spaces/internal/domain/activity"
	"github.com/arcify/spaces/internal/domain/bookmarks"
	"github.com/arcify/spaces/internal/domain/groups"
	"github.com/arcify/spaces/internal/domain/reconcile"
	"github.com/arcify/spaces/internal/domain/space"
	"github.com/arcify/spaces/internal/domain/titles"
	"github.com/arcify/spaces/internal/infrastructure/config"
	"github.com/arcify/spaces/internal/infrastructure/monitoring"
	"github.com/arcify/spaces/internal/logging"
	"github.com/arcify/spaces/internal/shared/types"
	"github.com/arcify/spaces/internal/storage"
)

// archiveSweepInterval is how often the idle-tab sweep runs when
// archiving is enabled.
const archiveSweepInterval = 5 * time.Minute

// Server wires the HTTP surface, the websocket bridge, and the engine
// assembled per connected browser host.
type Server struct {
	cfg     *config.Config
	router  *gin.Engine
	logger  *logging.Logger
	metrics *monitoring.Metrics
	store   *storage.Store
	http    *http.Server

	mu     sync.RWMutex
	engine *reconcile.Reconciler
}

// currentEngine returns the live engine, or nil when no host is
// attached.
func (s *Server) currentEngine() *reconcile.Reconciler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Server) setEngine(eng *reconcile.Reconciler) {
	s.mu.Lock()
	s.engine = eng
	s.mu.Unlock()
}

// clearEngine detaches eng unless a newer host already replaced it.
func (s *Server) clearEngine(eng *reconcile.Reconciler) {
	s.mu.Lock()
	if s.engine == eng {
		s.engine = nil
	}
	s.mu.Unlock()
}

// New creates a server instance.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	store, err := storage.Open(cfg.Engine.StorageDir, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
		store:   store,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics(s.metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	handlers := apihttp.NewHandlers(s.currentEngine, logger.Logger)
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wsHandler := ws.NewHandler(s.onHost, logger.Logger, s.metrics)
	router.GET("/host", wsHandler.HandleConnection)

	s.router = router
	return s, nil
}

// onHost assembles an engine around a freshly connected bridge and
// runs it until the connection drops.
func (s *Server) onHost(bridge *ws.Bridge) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-bridge.Done()
		cancel()
	}()
	go s.runEngine(ctx, bridge, bridge.Events())
}

// runEngine builds the domain stack for one host, performs the
// initialization pass, and consumes events until ctx ends.
func (s *Server) runEngine(ctx context.Context, host browser.Host, events <-chan types.Event) {
	engine := s.assemble(ctx, host)
	if engine == nil {
		return
	}
	s.setEngine(engine)
	defer s.clearEngine(engine)

	engine.Run(ctx, events)
	s.logger.Info("engine stopped")
}

// assemble constructs the per-host component graph and runs Init.
func (s *Server) assemble(ctx context.Context, host browser.Host) *reconcile.Reconciler {
	log := s.logger.Logger
	adapter := groups.NewAdapter(host.Tabs(), host.TabGroups(), log)
	folders := bookmarks.NewAccessor(host.Bookmarks(), host.Tabs(), s.cfg.Engine.RootFolderTitle, log)
	registry := space.NewManager(host.Tabs(), adapter, folders, s.store, log).WithMetrics(s.metrics)
	titleMgr := titles.NewManager(s.store, log)
	tracker := activity.NewTracker(s.store, log)

	if err := titleMgr.Load(ctx); err != nil {
		log.Warn("loading title overrides failed", zap.Error(err))
	}
	if err := tracker.Load(ctx); err != nil {
		log.Warn("loading tab activity failed", zap.Error(err))
	}

	engine := reconcile.New(reconcile.Config{
		Tabs:        host.Tabs(),
		Adapter:     adapter,
		Folders:     folders,
		Registry:    registry,
		Titles:      titleMgr,
		Tracker:     tracker,
		DefaultName: s.cfg.Engine.DefaultSpaceName,
		Logger:      log,
		Metrics:     s.metrics,
	})

	if err := engine.Init(ctx); err != nil {
		log.Error("engine initialization failed", zap.Error(err))
		return nil
	}

	if s.cfg.Engine.ArchiveEnabled {
		maxIdle := time.Duration(s.cfg.Engine.ArchiveAfterMin) * time.Minute
		archiver := activity.NewArchiver(tracker, registry, host.Tabs(), maxIdle, log)
		go archiver.Run(ctx, archiveSweepInterval)
	}
	return engine
}

// Run starts the HTTP listener and, in demo mode, an in-memory host.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Engine.DemoHost {
		demo := memhost.New()
		s.logger.Info("running with in-memory demo host")
		go s.runEngine(ctx, demo, demo.Events())
	}

	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.http = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the listener down gracefully.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
