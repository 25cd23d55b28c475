// Package bootstrap composes the wiki and runs its two startup phases: schema
// preparation, then listener binding.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagewiki/app/internal/config"
	appdb "pagewiki/app/internal/db"
	apphttp "pagewiki/app/internal/http"
	"pagewiki/app/internal/http/templates"
	"pagewiki/app/internal/markdown"
	"pagewiki/app/internal/wiki"
)

const readHeaderTimeout = 10 * time.Second

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	Metrics   *prometheus.Registry
}

type Result struct {
	WikiService wiki.Service
	HTTPServer  *apphttp.Server
	Database    *gorm.DB
	Cleanup     func() error
}

// PrepareSchema opens the pool and makes sure the pages table exists. The
// returned cleanup closes the pool.
func PrepareSchema(ctx context.Context, deps Dependencies) (*appdb.Access, func() error, error) {
	dbCfg := deps.Config.DB

	database, err := appdb.Open(appdb.Options{
		Driver:       dbCfg.Driver,
		Path:         dbCfg.Path,
		DSN:          dbCfg.DSN,
		MaxOpenConns: dbCfg.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "opening database")
	}

	cleanup := func() error {
		return appdb.Close(database)
	}

	access, err := appdb.NewAccess(database, appdb.AccessOptions{
		AcquireTimeout: dbCfg.AcquireTimeout,
		QueryTimeout:   dbCfg.QueryTimeout,
		Logger:         deps.Logger,
	})
	if err != nil {
		closeQuietly(deps.Logger, cleanup)
		return nil, nil, eris.Wrap(err, "creating database access")
	}

	if err := wiki.Migrate(ctx, access, deps.Logger); err != nil {
		closeQuietly(deps.Logger, cleanup)
		return nil, nil, eris.Wrap(err, "preparing wiki schema")
	}

	return access, cleanup, nil
}

// Build runs schema preparation and composes the application layers without
// binding a listener.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	access, cleanup, err := PrepareSchema(ctx, deps)
	if err != nil {
		return Result{}, err
	}

	closeOnError := func(wrapper error) (Result, error) {
		closeQuietly(deps.Logger, cleanup)
		return Result{}, wrapper
	}

	repo, err := wiki.NewRepository(access, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki repository"))
	}

	wikiService, err := wiki.NewService(repo, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki service"))
	}

	views, err := templates.NewRenderer(templates.Options{Dir: deps.Config.TemplateDir})
	if err != nil {
		return closeOnError(eris.Wrap(err, "loading view templates"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		WikiService: wikiService,
		Markdown:    markdown.NewRenderer(),
		Templates:   views,
		Database:    access.DB(),
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		Metrics:     deps.Metrics,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	return Result{
		WikiService: wikiService,
		HTTPServer:  httpServer,
		Database:    access.DB(),
		Cleanup: func() error {
			httpServer.Close()
			return cleanup()
		},
	}, nil
}

// Instance is a started wiki: schema prepared and listener bound.
type Instance struct {
	result   Result
	listener net.Listener
	server   *stdhttp.Server
	serveErr chan error
	logger   *logrus.Logger
	grace    time.Duration
}

// Start prepares the schema, then binds the configured port and serves on it.
// The listener is only bound once the schema is ready; on any failure the
// resources opened so far are released.
func Start(ctx context.Context, deps Dependencies) (*Instance, error) {
	result, err := Build(ctx, deps)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("0.0.0.0:%d", deps.Config.ServerPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		closeQuietly(deps.Logger, result.Cleanup)
		return nil, eris.Wrapf(err, "binding listener on %s", addr)
	}

	inst := &Instance{
		result:   result,
		listener: listener,
		server: &stdhttp.Server{
			Handler:           result.HTTPServer.Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		serveErr: make(chan error, 1),
		logger:   deps.Logger,
		grace:    deps.Config.ShutdownGrace,
	}

	if deps.Logger != nil {
		deps.Logger.WithField("addr", listener.Addr().String()).Info("http server listening")
	}

	go func() {
		err := inst.server.Serve(listener)
		if errors.Is(err, stdhttp.ErrServerClosed) {
			err = nil
		}
		inst.serveErr <- err
	}()

	return inst, nil
}

// Addr returns the bound listener address.
func (i *Instance) Addr() net.Addr {
	return i.listener.Addr()
}

// Wait blocks until ctx is cancelled or the server fails, then shuts the
// server down within the configured grace period and closes the pool.
func (i *Instance) Wait(ctx context.Context) error {
	var serveErr error
	select {
	case <-ctx.Done():
		if i.logger != nil {
			i.logger.Info("shutdown signal received")
		}
	case serveErr = <-i.serveErr:
		if serveErr != nil {
			serveErr = eris.Wrap(serveErr, "http server error")
		}
	}

	grace := i.grace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	var shutdownErr error
	if err := i.server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = eris.Wrap(err, "shutting down http server")
	}

	var cleanupErr error
	if err := i.result.Cleanup(); err != nil {
		cleanupErr = eris.Wrap(err, "closing database")
	}

	if err := errors.Join(serveErr, shutdownErr, cleanupErr); err != nil {
		return err
	}

	if i.logger != nil {
		i.logger.Info("http server shut down cleanly")
	}
	return nil
}

func closeQuietly(logger *logrus.Logger, cleanup func() error) {
	if err := cleanup(); err != nil && logger != nil {
		logger.WithError(err).Error("closing database after startup failure")
	}
}
