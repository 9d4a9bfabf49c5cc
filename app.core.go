package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

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
	logger   *zap.Logger
	config   *Config
	server   *http.Server
	tokens   TokenStore
	cleanups []func()
	workers  []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	var app *App
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	clock := NewClock(config.IsProduction)

	// ensure the logs folder exists and Setup the logging module.
	err = os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	logWriter := NewRotatingLogWriter(config, clock)
	closer := func() {
		if cerr := logWriter.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}
	logger, flusher := SetupLogging(config, logWriter, clock)

	// Setup the storage of the visitors tokens.
	tokens, err := setupTokenStore(logger, config)
	if err != nil {
		closer()
		return app, err
	}

	// Setup the client of the remote REST API shared by all visitors.
	apiClient := NewAPIClient(logger, &config.API, &http.Client{})
	strategies := setupStrategies(config, clock)

	factory := func(id string) *Visitor {
		client := apiClient.WithTokenSource(&visitorTokenSource{store: tokens, visitorID: id})
		vlogger := logger.With(zap.String("visitor.id", id))
		return &Visitor{
			ID:      id,
			Session: NewSessionStore(vlogger, id, tokens, NewAuthAPI(client), clock, strategies(client)...),
			Books:   NewBookStore(vlogger, NewBookAPI(client), NewReviewAPI(client)),
			Lists:   NewReadingListStore(vlogger, NewReadingListAPI(client)),
			Users:   NewUserAPI(client),
		}
	}
	tickClock := NewTickClock(clock)
	visitors := NewVisitorRegistry(logger, tickClock, &config.Session, factory)
	throttle := NewFormsThrottle(tickClock, config.Auth.FormsRate, config.Auth.FormsBurst)

	views, err := NewViews(clock)
	if err != nil {
		closer()
		return app, fmt.Errorf("failed to parse pages templates: %s", err)
	}

	webHandler := NewWebHandler(
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
		visitors,
		views,
		throttle,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		webHandler.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := webHandler.MiddlewaresStacks()

	// Configure the pages with their handlers and middlewares.
	router := webHandler.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please try again later.")

	// Build the web server definition.
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	return &App{
		logger: logger,
		config: config,
		server: srv,
		tokens: tokens,
		cleanups: []func(){
			func() { _ = flusher() },
			closer,
		},
		workers: []func(ctx context.Context) error{visitors.Run, throttle.Run},
	}, nil
}

// setupTokenStore opens the configured backend of the visitors tokens.
func setupTokenStore(logger *zap.Logger, config *Config) (TokenStore, error) {
	switch config.Session.TokenBackend {
	case TokenBackendRedis:
		redisClient, err := GetRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		return NewRedisTokenStore(logger, redisClient, config.Session.TokenTTL), nil
	default:
		if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create boltDB folder: %s", err)
		}
		boltDBClient, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltDB file: %s", err)
		}
		return NewBoltTokenStore(logger, &config.BoltDB, boltDBClient), nil
	}
}

// setupStrategies returns a builder of the enabled authentication strategies of a visitor.
func setupStrategies(config *Config, clock Clocker) func(*APIClient) []AuthStrategy {
	return func(client *APIClient) []AuthStrategy {
		api := NewAuthAPI(client)
		strategies := make([]AuthStrategy, 0, len(config.Auth.Strategies))
		for _, name := range config.Auth.Strategies {
			switch name {
			case PasswordStrategy:
				strategies = append(strategies, NewPasswordStrategy(api))
			case IdentityProviderKey:
				strategies = append(strategies, NewIdentityProviderStrategy(api, clock, config.Auth.Providers, config.Auth.ProviderClient))
			}
		}
		return strategies
	}
}

// Run starts the web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.StartWorkers(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("web server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("web server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("api.url", app.config.API.BaseURL),
		)
		err := app.server.ListenAndServe()
		if err == http.ErrServerClosed {
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
			app.logger.Info("web server stopping. reason: requested to stop")
		} else {
			app.logger.Info("web server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("web server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("web server graceful shutdown timed out")
		default:
			app.logger.Info("web server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("web server going to force shutdown", zap.Error(app.server.Close()))
		}
		if err := app.tokens.Close(); err != nil {
			app.logger.Error("failed to close tokens store", zap.Error(err))
		}
		return nil
	}
}

// StartWorkers runs all background workers into separate controlled goroutines.
func (app *App) StartWorkers(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, work := range app.workers {
			work := work
			g.Go(func() error {
				return work(gCtx)
			})
		}
		return nil
	}
}
