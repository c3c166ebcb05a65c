package app

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/config"
	"github.com/bishaldk/samvad/internal/history"
	"github.com/bishaldk/samvad/internal/lock"
	"github.com/bishaldk/samvad/internal/logging"
	"github.com/bishaldk/samvad/internal/notify"
	"github.com/bishaldk/samvad/internal/presence"
	"github.com/bishaldk/samvad/internal/rest"
	"github.com/bishaldk/samvad/internal/session"
	"github.com/bishaldk/samvad/internal/store"
	"github.com/bishaldk/samvad/internal/thread"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideLock,
			provideStore,
			provideSession,
			provideRESTClient,
			provideThreadStore,
			providePager,
			provideTracker,
			provideFeed,
			provideSupervisor,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, false)
}

func provideConfig(logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Info("no config file, using defaults")
		cfg = config.Default()
	}
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
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
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideSession restores persisted credentials so a restart keeps the login.
func provideSession(p Params, db *store.DB, logger *zap.Logger) (*session.Session, error) {
	sess := session.New(p.SessionName)
	creds, err := db.LoadCredentials(p.SessionName)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		sess.SetTokens(session.TokenPair{Access: creds.AccessToken, Refresh: creds.RefreshToken})
		sess.SetUser(session.User{
			ID:        creds.UserID,
			Email:     creds.Email,
			FirstName: creds.FirstName,
			LastName:  creds.LastName,
			IsStaff:   creds.IsStaff,
		})
		logger.Info("restored credentials", zap.String("email", creds.Email))
	}
	return sess, nil
}

func provideRESTClient(cfg *config.Config, sess *session.Session, logger *zap.Logger) *rest.Client {
	return rest.NewClient(cfg.ServerURL, sess, logger)
}

func provideThreadStore(b *bus.Bus, logger *zap.Logger) *thread.Store {
	return thread.NewStore(b, logger)
}

func providePager(client *rest.Client, logger *zap.Logger) *history.Pager {
	return history.NewPager(client, logger)
}

func provideTracker(b *bus.Bus, logger *zap.Logger) *presence.Tracker {
	return presence.NewTracker(b, logger)
}

func provideFeed(b *bus.Bus, logger *zap.Logger) *notify.Feed {
	return notify.NewFeed(b, logger)
}

func provideSupervisor(cfg *config.Config, sess *session.Session, client *rest.Client, db *store.DB, b *bus.Bus, ts *thread.Store, pager *history.Pager, tracker *presence.Tracker, feed *notify.Feed, logger *zap.Logger) *Supervisor {
	return NewSupervisor(cfg.SocketURL, sess, client, db, b, ts, pager, tracker, feed, logger)
}

func registerLifecycle(lc fx.Lifecycle, sup *Supervisor, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sup.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			sup.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
