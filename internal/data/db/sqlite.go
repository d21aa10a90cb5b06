package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// SQLiteService backs local runs and tests with a file or in-memory warehouse.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(path string, logg *logger.Logger) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")
	dsn := SQLiteDSN(path)
	serviceLog.Info("Opening warehouse", "path", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// One writer; every statement inside a transaction must go through the tx handle.
	sqlDB.SetMaxOpenConns(1)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

// SQLiteDSN turns a path (or ":memory:") into a DSN with foreign keys enforced.
func SQLiteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=1"
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=1"
	}
	return "file:" + path + "?_foreign_keys=1"
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) AutoMigrateAll() error { return AutoMigrateAll(s.db) }

func (s *SQLiteService) Close() error { return closeDB(s.db) }
