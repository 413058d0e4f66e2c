package factory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-party-backend/internal/config"
	"github.com/DoyleJ11/rps-party-backend/internal/engine"
	"github.com/DoyleJ11/rps-party-backend/internal/httpapi"
	"github.com/DoyleJ11/rps-party-backend/internal/hub"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
	"github.com/DoyleJ11/rps-party-backend/internal/storage/memory"
	"github.com/DoyleJ11/rps-party-backend/internal/storage/postgres"
	redisstorage "github.com/DoyleJ11/rps-party-backend/internal/storage/redis"
	"github.com/DoyleJ11/rps-party-backend/internal/ws"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage
	Hub     *hub.Hub
	Handler http.Handler
	Logger  *zap.Logger
}

// NewStorage opens the backend selected by cfg.Storage.
func NewStorage(cfg config.Config, log *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage {
	case "", storage.TypeMemory:
		return memory.New(), nil
	case storage.TypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case storage.TypePostgres:
		store, err := postgres.Open(cfg.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Storage)
	}
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := NewStorage(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	return NewWithStorage(ctx, cfg, store, log), nil
}

// NewWithStorage wires the hub and the HTTP handler around an existing store.
func NewWithStorage(ctx context.Context, cfg config.Config, store storage.Storage, log *zap.Logger) *App {
	h := hub.NewHub(ctx, hub.Config{
		Defaults: engine.Rules{
			Mode:          engine.ModeNormal,
			TimeOffset:    cfg.TimeOffset,
			TimeDuration:  cfg.TimeDuration,
			MatchDuration: cfg.MatchDuration,
		},
		MaxPersonsLimit: cfg.MaxPersonsLimit,
		Storage:         store,
		Logger:          log.Named("hub"),
	})

	wsCfg := ws.DefaultConfig()
	wsCfg.OriginPatterns = cfg.AllowedOrigins
	wsCfg.PingInterval = cfg.PingInterval
	wsCfg.WriteTimeout = cfg.WriteTimeout

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:     h,
		Storage: store,
		WS:      wsCfg,
		Logger:  log.Named("http"),
	})

	return &App{Storage: store, Hub: h, Handler: handler, Logger: log}
}

// Close stops the hub, waits for pending match saves and closes storage.
func (a *App) Close() error {
	a.Hub.Shutdown()
	a.Hub.Wait()
	return multierr.Combine(a.Storage.Close(), syncLogger(a.Logger))
}

// syncLogger ignores the error zap returns when stdout is a terminal.
func syncLogger(log *zap.Logger) error {
	if err := log.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
		return err
	}
	return nil
}
