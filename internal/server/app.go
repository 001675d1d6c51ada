// Package server initializes and runs the image hosting gateway server.
// It wires the database, the backing-store client, the session store and
// the HTTP API, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/blobstore"
	"github.com/dmitrijs2005/imghost/internal/server/config"
	"github.com/dmitrijs2005/imghost/internal/server/discovery"
	"github.com/dmitrijs2005/imghost/internal/server/httpapi"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/imghost/internal/server/services"
	"github.com/dmitrijs2005/imghost/internal/server/sessions"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	httpServer  *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	m, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobClient(cfg)
	if err != nil {
		return nil, err
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	propagator := discovery.NewPagesClient(cfg.CFAPIToken, cfg.CFAccountID, cfg.CFProjectName)

	settingsSvc := services.NewSettingsService(m, logger)
	allocatorSvc := services.NewAllocatorService(m, blobs, settingsSvc, propagator, logger, cfg)
	folderSvc := services.NewFolderService(m, blobs, logger)
	deploySvc := services.NewDeployService(m, logger, cfg.DeployHookURL)
	sessionSvc := services.NewSessionService(sessionStore, logger, cfg.SessionTTL)
	reconcileSvc := services.NewReconcileService(m, settingsSvc, logger)

	uploadSvc, err := services.NewUploadService(m, blobs, allocatorSvc, folderSvc,
		deploySvc, sessionSvc, logger, cfg.SiteURL, cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	httpServer := httpapi.NewServer(cfg.EndpointAddr, logger, uploadSvc, sessionSvc,
		folderSvc, allocatorSvc, deploySvc, reconcileSvc, settingsSvc, m)

	return &App{
		config:      cfg,
		logger:      logger,
		repomanager: m,
		httpServer:  httpServer,
	}, nil
}

func newBlobClient(cfg *config.Config) (blobstore.Client, error) {
	switch cfg.BlobBackend {
	case "", "github":
		return blobstore.NewGithubClient(), nil
	case "s3":
		client, err := blobstore.NewS3Client(context.Background(),
			cfg.S3BaseEndpoint, cfg.S3RootUser, cfg.S3RootPassword, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.BlobBackend)
	}
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	switch cfg.SessionBackend {
	case "", "memory":
		return sessions.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return sessions.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.SessionBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
