// Package httpapi exposes the gateway over HTTP: uploads, chunked upload
// sessions, folders, settings, and operator actions.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/imghost/internal/logging"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/imghost/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Server wires the gin router to the service layer.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     logging.Logger

	uploads   *services.UploadService
	sessions  *services.SessionService
	folders   *services.FolderService
	allocator *services.AllocatorService
	deploys   *services.DeployService
	reconcile *services.ReconcileService
	settings  *services.SettingsService
	repos     repomanager.RepositoryManager
}

func NewServer(addr string, logger logging.Logger,
	uploads *services.UploadService, sessionSvc *services.SessionService,
	folders *services.FolderService, allocator *services.AllocatorService,
	deploys *services.DeployService, reconcile *services.ReconcileService,
	settings *services.SettingsService, repos repomanager.RepositoryManager) *Server {

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		logger:    logger,
		uploads:   uploads,
		sessions:  sessionSvc,
		folders:   folders,
		allocator: allocator,
		deploys:   deploys,
		reconcile: reconcile,
		settings:  settings,
		repos:     repos,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	api.POST("/images", s.requireGuestUploads(), s.handleUpload)
	api.DELETE("/images/:id", s.handleDeleteImage)

	api.POST("/sessions", s.requireGuestUploads(), s.handleCreateSession)
	api.PUT("/sessions/:id/chunks/:index", s.handleIngestChunk)
	api.POST("/sessions/:id/complete", s.handleCompleteSession)
	api.DELETE("/sessions/:id", s.handleCancelSession)

	api.POST("/folders", s.handleCreateFolder)

	api.GET("/stores", s.handleListStores)
	api.POST("/reconcile", s.handleReconcileAll)
	api.POST("/reconcile/:id", s.handleReconcileOne)
	api.POST("/deploy", s.handleDeploy)

	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
