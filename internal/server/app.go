// Package server assembles the entity store: database and migrations, blob
// storage, services, and the HTTP and gRPC health endpoints run side by side.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/dmitrijs2005/dropzone/internal/server/config"
	gs "github.com/dmitrijs2005/dropzone/internal/server/grpc"
	"github.com/dmitrijs2005/dropzone/internal/server/httpapi"
	"github.com/dmitrijs2005/dropzone/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dropzone/internal/server/services"
	"github.com/dmitrijs2005/dropzone/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const healthProbeInterval = 10 * time.Second

var sqlOpen = sql.Open

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
	health *gs.HealthServer
}

// NewApp connects to the database, applies migrations and wires services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	blobs, err := newBlobStore(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApp(ctx, c, logger, db, rm, blobs, prometheus.NewRegistry())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config, logger logging.Logger) (storage.BlobStore, error) {
	if c.S3Bucket == "" {
		logger.Warn(ctx, "no bucket configured, file content is kept in memory")
		return storage.NewMemoryStore(), nil
	}

	s3, err := storage.NewS3Store(ctx, storage.S3Options{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}
	return s3, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager,
	blobs storage.BlobStore, reg *prometheus.Registry) (*App, error) {

	observer, err := services.NewPrometheusObserver("dropzone", reg)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		logger.Warn(ctx, "go collector not registered", "error", err)
	}

	authService := services.NewAuthService(db, rm, c)
	metadataService := services.NewMetadataService(db, rm)
	dataService := services.NewDataService(db, rm, blobs, c, observer, logger)

	if c.BootstrapClientID != "" && c.BootstrapClientSecret != "" {
		if err := authService.EnsureClient(ctx, c.BootstrapClientID, []byte(c.BootstrapClientSecret)); err != nil {
			return nil, fmt.Errorf("bootstrap client: %w", err)
		}
		logger.Info(ctx, "bootstrap client registered", "client_id", c.BootstrapClientID)
	}

	httpServer, err := httpapi.NewServer(httpapi.Options{
		Address:  c.HTTPAddr,
		Auth:     authService,
		Metadata: metadataService,
		Data:     dataService,
		Logger:   logger,
		RateLimit: httpapi.RateLimitConfig{
			RequestsPerMinute: c.RateLimitPerMinute,
			Burst:             c.RateLimitBurst,
		},
		MaxUploadSize: c.MaxUploadSize,
		Registry:      reg,
		Ready:         db.PingContext,
	})
	if err != nil {
		return nil, err
	}

	health := gs.NewHealthServer(c.HealthAddr, logger, db.PingContext, healthProbeInterval)

	return &App{config: c, logger: logger, db: db, http: httpServer, health: health}, nil
}

// Run serves HTTP and gRPC health until ctx is cancelled or either server
// fails, then closes the database.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")
	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close failed", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.health.Run(gctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
