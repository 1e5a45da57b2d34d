package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// DB wraps the menu database connection pool.
type DB struct {
	*sql.DB
	driver string
}

// New opens a pool using the given driver ("postgres" for lib/pq, "pgx" for
// the pgx stdlib adapter). When the first ping fails and the DSN does not
// mention sslmode, it retries once with SSL disabled.
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverPgx {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := open(ctx, driver, dsn)
	if err != nil && !strings.Contains(strings.ToLower(dsn), "sslmode") {
		slog.Warn("retrying database connection with SSL disabled", "driver", driver)
		sqlDB, err = open(ctx, driver, withSSLDisabled(dsn))
	}
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{DB: sqlDB, driver: driver}, nil
}

func open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqlDB, nil
}

// withSSLDisabled appends sslmode=disable to a URL or keyword/value DSN.
func withSSLDisabled(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return dsn + " sslmode=disable"
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=disable"
	}
	return dsn + "?sslmode=disable"
}

func (db *DB) Driver() string { return db.driver }

// HealthCheck verifies the database connection is healthy
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Migration is one numbered SQL file, e.g. 001_menu_schema.sql.
type Migration struct {
	Number int
	Name   string
	SQL    string
}

// RunMigrations applies every not-yet-applied migration in dir, each in its
// own transaction, recording it in schema_migrations.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	migrations, err := ReadMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if len(migrations) == 0 {
		slog.Info("no migrations found", "dir", dir)
		return nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.Number,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Number, err)
		}
		if applied {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("migration applied", "version", m.Number, "name", m.Name)
	}
	return nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", m.Number, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Number, m.Name,
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Number, err)
	}
	return tx.Commit()
}

// ReadMigrations collects NNN_name.sql files under dir sorted by number.
// Files without a numeric prefix are ignored.
func ReadMigrations(dir string) ([]Migration, error) {
	var migrations []Migration
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}
		prefix, rest, ok := strings.Cut(d.Name(), "_")
		if !ok {
			return nil
		}
		number, err := strconv.Atoi(prefix)
		if err != nil {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", d.Name(), err)
		}
		migrations = append(migrations, Migration{
			Number: number,
			Name:   strings.TrimSuffix(rest, ".sql"),
			SQL:    string(b),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Number < migrations[j].Number })
	return migrations, nil
}
