// Package daemon composes the application with fx: providers for every
// component and the lifecycle hooks that start and stop them in order.
package daemon

import (
	"context"

	"github.com/wafleet/wafleet/internal/api"
	"github.com/wafleet/wafleet/internal/bulk"
	"github.com/wafleet/wafleet/internal/bus"
	"github.com/wafleet/wafleet/internal/config"
	"github.com/wafleet/wafleet/internal/creds"
	"github.com/wafleet/wafleet/internal/groupcache"
	"github.com/wafleet/wafleet/internal/lock"
	"github.com/wafleet/wafleet/internal/logging"
	"github.com/wafleet/wafleet/internal/manager"
	"github.com/wafleet/wafleet/internal/store"
	intsync "github.com/wafleet/wafleet/internal/sync"
	"github.com/wafleet/wafleet/internal/transport"
	"github.com/wafleet/wafleet/internal/wa"
	"github.com/wafleet/wafleet/internal/workdir"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved startup options passed to the fx module.
type Params struct {
	WorkDir    string // optional override; empty = default under the home dir
	ConfigPath string // optional override; empty = <workdir>/config.toml
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideWorkdir,
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideCredStore,
			provideGroupCache,
			provideTransport,
			provideManager,
			provideSyncEngine,
			provideBulkExecutor,
			provideSessionService,
			provideMessageService,
			provideGroupService,
			provideSyncService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideWorkdir(p Params) (*workdir.Dir, error) {
	return workdir.Resolve(p.WorkDir)
}

func provideConfig(p Params, dirs *workdir.Dir) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = dirs.ConfigPath()
	}
	return config.Load(path)
}

func provideLogger(dirs *workdir.Dir) (*zap.Logger, error) {
	return logging.New(dirs.LogPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(dirs *workdir.Dir, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring daemon lock", zap.String("dir", dirs.Base()))
	l, err := lock.Acquire(dirs.Base())
	if err != nil {
		return nil, err
	}
	logger.Info("daemon lock acquired")
	return l, nil
}

func provideStore(dirs *workdir.Dir, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(dirs.StorePath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dirs.StorePath()))
	return db, nil
}

func provideCredStore(dirs *workdir.Dir) creds.Store {
	return creds.NewFileStore(dirs)
}

func provideGroupCache(cfg *config.Config) *groupcache.Cache {
	return groupcache.New(cfg.GroupCacheSize, cfg.GroupCacheTTL())
}

func provideTransport(dirs *workdir.Dir, logger *zap.Logger) transport.Transport {
	return wa.NewTransport(dirs, logger)
}

func provideManager(db *store.DB, cs creds.Store, tr transport.Transport, cache *groupcache.Cache, cfg *config.Config, dirs *workdir.Dir, b *bus.Bus, logger *zap.Logger) *manager.Manager {
	return manager.New(db, cs, tr, cache, cfg, dirs, b, logger)
}

func provideSyncEngine(db *store.DB, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, cfg.GroupsOnly, logger)
}

func provideBulkExecutor(mgr *manager.Manager, db *store.DB, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *bulk.Executor {
	return bulk.NewExecutor(mgr, db, cfg.Bulk, b, logger)
}

func provideSessionService(mgr *manager.Manager, db *store.DB) *api.SessionService {
	return api.NewSessionService(mgr, db)
}

func provideMessageService(mgr *manager.Manager, ex *bulk.Executor, db *store.DB) *api.MessageService {
	return api.NewMessageService(mgr, ex, db)
}

func provideGroupService(mgr *manager.Manager, db *store.DB) *api.GroupService {
	return api.NewGroupService(mgr, db)
}

func provideSyncService(b *bus.Bus, db *store.DB) *api.SyncService {
	return api.NewSyncService(b, db)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, mgr *manager.Manager, engine *intsync.Engine, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start sync engine first so restored connections never emit
			// into the void.
			engine.Start(context.Background())
			go mgr.RestoreSessions(context.Background())
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			// Detach only; a logout here would unlink every paired device
			// and force re-pairing after the next start.
			mgr.Shutdown()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
