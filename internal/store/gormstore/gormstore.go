// Package gormstore keeps generation records in a relational database
// behind GORM. It backs local setups and the test suite; sqlite, mysql
// and postgres are supported.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/otslabs/tsgallery/internal/models"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/logger"
)

// Config contains database connection options.
type Config struct {
	Driver   string
	Path     string // SQLite database path when Driver == sqlite
	DSN      string // Optional DSN override
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Options  map[string]string
}

// Open initialises a gorm.DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		return openSQLite(cfg)
	case "mysql":
		return openMySQL(cfg)
	case "postgres":
		return openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn := cfg.DSN

	if dsn == "" {
		path := strings.TrimSpace(cfg.Path)
		switch {
		case path == "", strings.EqualFold(path, ":memory:"):
			// Shared cache keeps the pooled connections on one database.
			dsn = "file::memory:?cache=shared"
		default:
			if err := ensureDir(path); err != nil {
				return nil, err
			}
			dsn = fmt.Sprintf("file:%s?_journal_mode=WAL", filepath.ToSlash(path))
		}
	}

	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Store implements record persistence on a gorm.DB handle.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// New wraps an open database handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore requires a database handle")
	}
	return &Store{db: db, log: logger.WithModule("store.gorm")}, nil
}

// OpenStore opens the database and wraps it in one call.
func OpenStore(cfg Config) (*Store, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(db)
}

// EnsureSchema migrates the record table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&recordRow{}); err != nil {
		return appErrors.NewStorage("migrate", err)
	}
	return nil
}

// Put upserts one record in a single statement.
func (s *Store) Put(ctx context.Context, rec *models.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return appErrors.NewBadRequest("record id is required")
	}

	row := rowFromRecord(rec)
	err := s.db.WithContext(ctx).
		Clauses(upsertClause()).
		Create(row).Error
	if err != nil {
		return appErrors.NewStorage("put", err)
	}

	s.log.Debug("row written", zap.String("id", rec.ID))
	return nil
}

// Get fetches one record by id.
func (s *Store) Get(ctx context.Context, id string) (*models.GenerationRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.NewNotFound(id)
	}
	if err != nil {
		return nil, appErrors.NewStorage("get", err)
	}
	return row.toRecord(), nil
}

// Delete removes one record. Absent rows are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&recordRow{}, "id = ?", id).Error; err != nil {
		return appErrors.NewStorage("delete", err)
	}
	return nil
}

// Ping verifies the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return appErrors.NewStorage("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return appErrors.NewStorage("ping", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
