package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func() error
	stoppers       []func() error
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and Setup the logging module.
	if err = os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))

	app := &App{
		logger:   logger,
		config:   config,
		cleanups: []func() error{flusher, logWriter.Close},
	}

	bookStorage, err := app.setupStorage()
	if err != nil {
		app.Clean()
		return nil, err
	}

	queue, err := app.setupMirror()
	if err != nil {
		app.Clean()
		return nil, err
	}

	bookService := NewBookService(logger, config, bookStorage, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	app.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	return app, nil
}

// setupStorage connects to the configured relational database, applies
// the schema migrations if enabled and returns the matching book storage.
func (app *App) setupStorage() (BookStorage, error) {
	config := app.config
	switch config.Storage.Driver {
	case PostgresDriver:
		pool, err := GetPostgresClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %s", err)
		}
		app.cleanups = append([]func() error{func() error { pool.Close(); return nil }}, app.cleanups...)
		if config.Storage.Migrate {
			if err = RunMigrations(app.logger, stdlib.OpenDBFromPool(pool), PostgresDriver); err != nil {
				return nil, err
			}
		}
		app.logger.Info("storage ready", zap.String("storage.driver", PostgresDriver))
		return NewPostgresBookStorage(app.logger.Named("postgres"), pool, config.Storage.QueryTimeout), nil

	case SQLiteDriver:
		db, err := GetSQLiteClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %s", err)
		}
		app.cleanups = append([]func() error{db.Close}, app.cleanups...)
		if config.Storage.Migrate {
			if err = RunMigrations(app.logger, db, SQLiteDriver); err != nil {
				return nil, err
			}
		}
		app.logger.Info("storage ready", zap.String("storage.driver", SQLiteDriver), zap.String("storage.file", config.SQLite.FilePath))
		return NewSQLiteBookStorage(app.logger.Named("sqlite"), db, config.Storage.QueryTimeout), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
}

// setupMirror builds the changes queue. When the mirror is enabled, the changes are
// pushed to redis and a consumer replays them into the local boltdb file.
func (app *App) setupMirror() (Queuer, error) {
	if !app.config.Mirror.Enable {
		return NewNoopQueue(), nil
	}

	redisClient, err := GetRedisClient(app.config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis server: %s", err)
	}
	// closing the client unblocks the consumers waiting on the queues.
	app.stoppers = append(app.stoppers, redisClient.Close)

	boltDBClient, err := GetBoltDBClient(app.config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to boltDB server: %s", err)
	}
	app.cleanups = append([]func() error{boltDBClient.Close}, app.cleanups...)

	redisQueue := NewRedisQueue(redisClient)
	boltBookStorage := NewBoltBookStorage(app.logger.Named("mirror"), &app.config.BoltDB, boltDBClient)
	mirrorConsumer := NewMirrorConsumer(app.logger.Named("mirror"), redisQueue, boltBookStorage)
	app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
		return mirrorConsumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	})
	app.logger.Info("mirror ready", zap.String("boltdb.file", app.config.BoltDB.FilePath))
	return redisQueue, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions. Resources are
// prepended on registration so the logging ones run last.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintln(os.Stderr, "cleanup failed:", err)
		}
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		for _, f := range app.stoppers {
			if err := f(); err != nil {
				app.logger.Error("failed to release resource on stop", zap.Error(err))
			}
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
