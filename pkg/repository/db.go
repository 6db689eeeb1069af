package repository

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig holds database connection settings.
type DBConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	// SQLitePath is used when Driver is "sqlite". ":memory:" opens a private
	// in-memory database.
	SQLitePath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the driver-specific connection string.
func (c DBConfig) DSN() string {
	if c.Driver == DriverSQLite {
		path := c.SQLitePath
		if path != ":memory:" {
			path = filepath.Clean(path)
		}
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslMode)
}

// NewDB opens and pings a database connection.
func NewDB(cfg DBConfig) (*sqlx.DB, error) {
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case DriverPostgres, DriverSQLite:
	case "":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	cfg.Driver = driver

	if driver == DriverSQLite && strings.TrimSpace(cfg.SQLitePath) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sqlx.Connect(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		maxOpen := cfg.MaxOpenConns
		if maxOpen == 0 {
			maxOpen = 25
		}
		maxIdle := cfg.MaxIdleConns
		if maxIdle == 0 {
			maxIdle = 5
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}
