package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/config"
	"github.com/example/image-browser/folders"
	"github.com/example/image-browser/hierarchy"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/listing"
	"github.com/example/image-browser/logging"
	"github.com/example/image-browser/metrics"
	"github.com/example/image-browser/pathsafe"
	"github.com/example/image-browser/storage"
	"github.com/example/image-browser/upload"
)

// filesRoute serves stored images when no public URL is configured.
const filesRoute = "/files"

// Server represents the HTTP server
type Server struct {
	engine  *gin.Engine
	storage storage.Storage
	config  *config.Config
	metrics *metrics.Metrics

	sanitizer pathsafe.Sanitizer
	lister    *listing.Lister
	folders   *folders.Engine
	uploads   *upload.Orchestrator
	builder   hierarchy.Builder

	httpServer *http.Server
}

// NewServer creates a new HTTP server backed by the configured storage
func NewServer(cfg *config.Config) (*Server, error) {
	store, err := createStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return NewServerWithStorage(cfg, store), nil
}

// NewServerWithStorage creates a server around an existing store
func NewServerWithStorage(cfg *config.Config, store storage.Storage) *Server {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.Middleware())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		engine.Use(m.Middleware())
		store = storage.Instrument(store, m)
	}

	sanitizer := pathsafe.Sanitizer{MaxLength: cfg.Limits.MaxPathLength}
	lister := listing.New(store, cfg.Limits.MaxListObjects)
	folderEngine := folders.NewEngine(store, lister, folders.Options{
		Sanitizer: sanitizer,
		BatchSize: cfg.Limits.BatchSize,
		ReportCap: cfg.Limits.ReportCap,
	})
	urls := keys.URLBuilder{Base: cfg.Server.PublicURL}
	if urls.Base == "" {
		urls.Base = filesRoute
	}
	orchestrator := upload.NewOrchestrator(store,
		upload.NewResolver(store, cfg.Limits.RenameAttempts),
		folderEngine,
		upload.Options{
			Sanitizer: sanitizer,
			MaxSize:   cfg.Limits.MaxUploadSize,
			URLs:      urls,
		})

	server := &Server{
		engine:    engine,
		storage:   store,
		config:    cfg,
		metrics:   m,
		sanitizer: sanitizer,
		lister:    lister,
		folders:   folderEngine,
		uploads:   orchestrator,
		builder:   hierarchy.Builder{URLs: urls},
	}

	server.registerRoutes()
	server.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// createStorage creates a storage instance based on configuration
func createStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "minio":
		return storage.NewMinIOStorage(
			cfg.Storage.MinIO.Endpoint,
			cfg.Storage.MinIO.AccessKey,
			cfg.Storage.MinIO.SecretKey,
			cfg.Storage.MinIO.UseSSL,
			cfg.Storage.Bucket,
		)
	case "s3":
		return storage.NewS3Storage(
			cfg.Storage.S3.Endpoint,
			cfg.Storage.S3.Region,
			cfg.Storage.S3.AccessKey,
			cfg.Storage.S3.SecretKey,
			cfg.Storage.Bucket,
			cfg.Storage.S3.UsePathStyle,
		)
	case "oss":
		return storage.NewOSSStorage(
			cfg.Storage.OSS.Endpoint,
			cfg.Storage.OSS.AccessKey,
			cfg.Storage.OSS.SecretKey,
			cfg.Storage.OSS.UseSSL,
			cfg.Storage.Bucket,
		)
	case "obs":
		return storage.NewOBStorage(
			cfg.Storage.OBS.Endpoint,
			cfg.Storage.OBS.AccessKey,
			cfg.Storage.OBS.SecretKey,
			cfg.Storage.OBS.UseSSL,
			cfg.Storage.Bucket,
		)
	case "azure":
		// A connection string takes precedence over account name and key
		if cfg.Storage.Azure.ConnectionString != "" {
			return storage.NewAzureStorageFromConnectionString(
				cfg.Storage.Azure.ConnectionString,
				cfg.Storage.Bucket,
			)
		}
		endpoint := cfg.Storage.Azure.Endpoint
		if endpoint == "" && cfg.Storage.Azure.AccountName != "" {
			endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.Storage.Azure.AccountName)
		}
		return storage.NewAzureStorage(
			cfg.Storage.Azure.AccountName,
			cfg.Storage.Azure.AccountKey,
			endpoint,
			cfg.Storage.Bucket,
		)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// registerRoutes registers HTTP routes
func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.metrics.Register(s.engine, s.config.Metrics.Path)
	}

	reads := s.engine.Group("/")
	if s.config.Auth.ProtectReads {
		reads.Use(s.BasicAuth())
	}
	{
		reads.GET("/api/folders", s.listFolders)
		reads.GET("/api/images", s.listImages)
		reads.GET(filesRoute+"/*key", s.serveFile)
	}

	admin := s.engine.Group("/api/admin")
	admin.Use(s.BasicAuth())
	{
		admin.GET("/stats", s.stats)
		admin.POST("/upload", s.uploadSimple)
		admin.POST("/upload/batch", s.uploadBatch)
		admin.POST("/folders", s.createFolder)
		admin.POST("/folders/nested", s.createNestedFolder)
		admin.GET("/folders/download", s.downloadFolder)
		admin.PUT("/folders/move", s.moveFolder)
		admin.PUT("/folders/:name", s.renameFolder)
		admin.DELETE("/folders/recursive", s.deleteRecursive)
		admin.DELETE("/folders/:name", s.deleteFolder)
	}
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(s.engine)
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": s.config.Storage.Type,
	})
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	logrus.WithFields(logrus.Fields{
		"port":    s.config.Server.Port,
		"storage": s.config.Storage.Type,
	}).Info("Starting image browser")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
