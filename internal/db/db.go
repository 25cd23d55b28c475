package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const defaultMaxOpenConns = 30

// Options controls how the database connection pool is initialised.
type Options struct {
	Driver       string
	Path         string
	DSN          string
	Logger       logger.Interface
	BusyTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

// Open establishes a pooled connection using Gorm and the configured driver.
// SQLite is the default; postgres and mysql take a driver specific DSN.
func Open(opts Options) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = defaultMaxOpenConns
	}

	dialector, err := dialectorFor(driver, opts)
	if err != nil {
		return nil, err
	}

	gormLogger := opts.Logger
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s database", driver)
	}

	if err := applyConnectionSettings(db, opts); err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		if err := enforcePragmas(db, opts.BusyTimeout); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func dialectorFor(driver string, opts Options) (gorm.Dialector, error) {
	switch driver {
	case DriverSQLite:
		if opts.Path == "" {
			return nil, eris.New("database path is required")
		}
		if err := ensureParentDir(opts.Path); err != nil {
			return nil, err
		}
		busyTimeoutMillis := opts.BusyTimeout / time.Millisecond
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_journal_mode=WAL", opts.Path, busyTimeoutMillis)
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, eris.New("database DSN is required for postgres")
		}
		return postgres.Open(opts.DSN), nil
	case DriverMySQL:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, eris.New("database DSN is required for mysql")
		}
		return mysql.Open(opts.DSN), nil
	default:
		return nil, eris.Errorf("unsupported database driver: %s", driver)
	}
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, ":memory:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "creating database directory %s", dir)
	}

	return nil
}

func applyConnectionSettings(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "retrieving sql.DB from gorm")
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}

	if opts.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdle)
	}

	if opts.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLife)
	}

	return nil
}

func enforcePragmas(db *gorm.DB, busyTimeout time.Duration) error {
	timeoutMillis := int(busyTimeout / time.Millisecond)

	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		return eris.Wrap(err, "enabling foreign keys pragma")
	}

	if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d;", timeoutMillis)).Error; err != nil {
		return eris.Wrap(err, "configuring busy timeout pragma")
	}

	if err := db.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
		return eris.Wrap(err, "setting journal mode to WAL")
	}

	return nil
}

// Close releases the underlying database resources.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "retrieving sql.DB for close")
	}

	if err := sqlDB.Close(); err != nil {
		return eris.Wrap(err, "closing database connection")
	}

	return nil
}

// SQLDB exposes the underlying *sql.DB for health checks and pool statistics.
func SQLDB(db *gorm.DB) (*sql.DB, error) {
	if db == nil {
		return nil, eris.New("gorm.DB is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB")
	}

	return sqlDB, nil
}
