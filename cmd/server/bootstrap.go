package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/otslabs/tsgallery/internal/api"
	"github.com/otslabs/tsgallery/internal/app"
	"github.com/otslabs/tsgallery/internal/gallery"
	"github.com/otslabs/tsgallery/internal/images"
	"github.com/otslabs/tsgallery/internal/monitoring"
	"github.com/otslabs/tsgallery/internal/monitoring/checks"
	"github.com/otslabs/tsgallery/internal/services"
	"github.com/otslabs/tsgallery/internal/store"
	"github.com/otslabs/tsgallery/internal/store/gormstore"
	"github.com/otslabs/tsgallery/internal/store/tablestore"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	Store     store.Store
	Blobs     images.BlobStore
	Records   *services.RecordService
	Galleries *services.GalleryService
	Health    *monitoring.HealthManager
	Router    *gin.Engine
}

// bootstrapRuntime initialises storage, services, health probes, and the
// HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if cerr := stack.Shutdown(); cerr != nil {
				log.Warn("partial bootstrap cleanup failed", zap.Error(cerr))
			}
		}
	}()

	// gin runs in release mode unless GIN_DEBUG=true asks for its noise
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Store = store.WithMetrics(openRecordStore(cfg, log))

	// Schema setup is best effort. When credentials are missing or the
	// backend is unreachable the host WebUI must keep running; the cause
	// is logged here and surfaces again on every record operation.
	if err := stack.Store.EnsureSchema(ctx); err != nil {
		log.Warn("record store schema not ready", zap.Error(err))
	}

	stack.Blobs, err = openImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	thumbs, err := images.NewThumbnailer(
		cfg.Images.Thumbnails.Dir,
		cfg.Images.Thumbnails.Width,
		cfg.Images.Thumbnails.Height,
		stack.Blobs,
	)
	if err != nil {
		return nil, fmt.Errorf("initialise thumbnailer: %w", err)
	}

	stack.Records, err = services.NewRecordService(stack.Store, stack.Blobs, thumbs)
	if err != nil {
		return nil, fmt.Errorf("initialise record service: %w", err)
	}

	sessions := gallery.NewRegistry(cfg.Gallery.SessionMaxIdle)
	stack.Galleries, err = services.NewGalleryService(stack.Records, sessions)
	if err != nil {
		return nil, fmt.Errorf("initialise gallery service: %w", err)
	}

	stack.Health = monitoring.NewHealthManager()
	stack.Health.RegisterReadiness(checks.RecordStore(stack.Store, 0))
	stack.Health.RegisterReadiness(checks.ImageStore(stack.Blobs, 0))

	stack.Router, err = api.NewRouter(stack.Records, stack.Galleries, cfg, stack.Health)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases the stack's storage handles. Close failures are
// combined so one broken backend never hides another.
func (s *runtimeStack) Shutdown() error {
	if s == nil {
		return nil
	}

	var errs error

	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record store: %w", err))
		}
	}

	if closer, ok := s.Blobs.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("image store: %w", err))
		}
	}

	return errs
}

// openRecordStore selects the record backend. It never fails hard: when
// the backend cannot be configured, the returned store reports the cause
// on every operation and the rest of the plugin stays up.
func openRecordStore(cfg *app.Config, log *zap.Logger) store.Store {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	switch driver {
	case "", "tablestore":
		ts, err := tablestore.New(cfg.Store.Tablestore.ClientConfig())
		if err != nil {
			log.Warn("table store unavailable", zap.Error(err))
			return store.Unavailable(err)
		}
		log.Info("table store configured",
			zap.String("instance", strings.TrimSpace(cfg.Store.Tablestore.InstanceName)),
			zap.String("region", ts.Region()),
			zap.String("console", ts.ConsoleURL()))
		return ts
	default:
		gs, err := gormstore.OpenStore(convertStoreConfig(cfg, driver))
		if err != nil {
			log.Warn("relational store unavailable", zap.Error(err))
			return store.Unavailable(err)
		}
		log.Info("relational store connected", zap.String("driver", driver))
		return gs
	}
}

func convertStoreConfig(cfg *app.Config, driver string) gormstore.Config {
	dbCfg := gormstore.Config{
		Driver: driver,
		Path:   strings.TrimSpace(cfg.Store.Path),
		DSN:    strings.TrimSpace(cfg.Store.DSN),
	}

	switch driver {
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Store.Postgres.Host)
		dbCfg.Port = cfg.Store.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Store.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Store.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Store.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Store.MySQL.Host)
		dbCfg.Port = cfg.Store.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Store.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Store.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Store.MySQL.Password)
	}

	return dbCfg
}

// openImageStore picks the blob backend for generated images.
func openImageStore(ctx context.Context, cfg *app.Config) (images.BlobStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Images.Backend))

	switch backend {
	case "", "local":
		return images.NewLocalStore(cfg.Images.Dir)
	case "s3":
		return images.NewS3Store(ctx, images.S3Config{
			Endpoint:  strings.TrimSpace(cfg.Images.S3.Endpoint),
			Region:    strings.TrimSpace(cfg.Images.S3.Region),
			Bucket:    strings.TrimSpace(cfg.Images.S3.Bucket),
			AccessKey: cfg.Images.S3.AccessKey,
			SecretKey: cfg.Images.S3.SecretKey,
			PathStyle: cfg.Images.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported image backend %q", cfg.Images.Backend)
	}
}
