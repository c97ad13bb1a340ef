package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/config"
	"spendlog/internal/models"

	"github.com/go-sql-driver/mysql"
	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a pooled sql.DB connection.
type DB struct {
	conn    *sql.DB
	dialect string
}

// NewDB opens a SQLite database at path and prepares the schema.
func NewDB(path string) (*DB, error) {
	return Open(context.Background(), config.Database{
		Driver:       config.DriverSQLite,
		Path:         path,
		MaxOpenConns: 10,
	})
}

// Open connects to the database described by cfg, bounds the connection
// pool and prepares the schema.
func Open(ctx context.Context, cfg config.Database) (*DB, error) {
	var (
		driverName string
		dsn        string
		maxConns   = cfg.MaxOpenConns
	)
	switch cfg.Driver {
	case config.DriverMySQL:
		driverName, dsn = "mysql", mysqlDSN(cfg)
	case config.DriverSQLite, "":
		driverName, dsn = "sqlite", sqliteDSN(cfg.Path)
		// Every connection to :memory: is a separate database.
		if isMemory(cfg.Path) {
			maxConns = 1
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		conn.SetMaxOpenConns(maxConns)
		conn.SetMaxIdleConns(maxConns)
	}
	conn.SetConnMaxLifetime(connMaxLifetime(driverName, cfg.Path))

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, dialect: driverName}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}

	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// connMaxLifetime is zero, meaning unlimited, for in-memory databases:
// recycling their only connection discards the data.
func connMaxLifetime(driverName, path string) time.Duration {
	if driverName == "sqlite" && isMemory(path) {
		return 0
	}
	return time.Hour
}

func isMemory(path string) bool {
	return strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

func mysqlDSN(cfg config.Database) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

func (db *DB) migrate(ctx context.Context) error {
	statements := sqliteSchema()
	if db.dialect == "mysql" {
		statements = mysqlSchema()
	}
	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// categoryCheck renders the canonical category set as a SQL IN list.
func categoryCheck() string {
	quoted := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		quoted = append(quoted, "'"+strings.ReplaceAll(c, "'", "''")+"'")
	}
	return "category IN (" + strings.Join(quoted, ", ") + ")"
}

func sqliteSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			password TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			expense_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(user_id),
			category TEXT NOT NULL CHECK (` + categoryCheck() + `),
			amount NUMERIC NOT NULL,
			description TEXT,
			date DATE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses (user_id, date)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
		)`,
	}
}

func mysqlSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			expense_id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			category VARCHAR(64) NOT NULL,
			amount DECIMAL(10,2) NOT NULL,
			description TEXT,
			date DATE NOT NULL,
			INDEX idx_expenses_user_date (user_id, date),
			CONSTRAINT chk_expenses_category CHECK (` + categoryCheck() + `),
			CONSTRAINT fk_expenses_user FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token VARCHAR(64) PRIMARY KEY,
			user_id INT NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			last_activity DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			CONSTRAINT fk_sessions_user FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
		)`,
	}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
