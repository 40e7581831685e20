package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/db"
	apphttp "github.com/yungbote/minesafe-compliance/internal/http"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	store        *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// Bootstrap loads config and opens the shared dependencies every binary
// needs. hub is nil for processes that serve no alert streams.
func Bootstrap(withHub bool) (*App, error) {
	log, err := logger.New(logMode())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(context.Background(), log, cfg.Otel)
	a.Metrics = observability.Init(log, cfg.Metrics.Enabled)

	store, err := db.Open(log, cfg.Postgres)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.store = store
	if err := store.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	a.DB = store.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	if withHub {
		a.SSEHub = realtime.NewSSEHub(log)
		a.SSEHub.OnClientCount = a.Metrics.SetStreamClients
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, a.Clients, a.Metrics, a.SSEHub)
	return a, nil
}

// New builds the HTTP API.
func New() (*App, error) {
	a, err := Bootstrap(true)
	if err != nil {
		return nil, err
	}
	if mode := a.Cfg.Server.Mode; mode != "" {
		gin.SetMode(mode)
	}
	handlers := wireHandlers(a.Log, a.Services, a.SSEHub, a.Metrics)
	middleware, err := wireMiddleware(a.Log, a.Cfg, a.Services)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = wireRouter(a.Log, a.Cfg, handlers, middleware, a.Metrics)
	return a, nil
}

// Start launches the background loops: the Redis forwarder feeding the local
// hub and the metrics collectors.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.AlertBus != nil && a.SSEHub != nil {
		hub := a.SSEHub
		if err := a.Clients.AlertBus.StartForwarder(ctx, func(m realtime.SSEMessage) { hub.Broadcast(m) }); err != nil {
			return fmt.Errorf("start alert forwarder: %w", err)
		}
	}
	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
		if addr := a.Cfg.Metrics.Addr; addr != "" {
			a.Metrics.StartServer(ctx, a.Log, addr)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	srv := &apphttp.Server{Engine: a.Router}
	a.Log.Info("Serving HTTP", "addr", a.Cfg.Server.Addr)
	return srv.Run(ctx, a.Cfg.Server.Addr, a.Cfg.Server.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("Closing database failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
