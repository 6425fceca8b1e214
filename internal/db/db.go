package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool backing the delivery log.
type DB struct {
	*sql.DB
}

// New opens and pings url. When the first ping fails and url does not pick
// an sslmode, it retries once with sslmode=disable for local Postgres.
func New(url string) (*DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database connection string is required")
	}

	sqlDB, err := open(url)
	if err != nil {
		if strings.Contains(strings.ToLower(url), "sslmode") {
			return nil, err
		}
		log.Println("retrying database connection with SSL disabled")
		sqlDB, err = open(withSSLDisabled(url))
		if err != nil {
			return nil, err
		}
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{DB: sqlDB}, nil
}

func open(url string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqlDB, nil
}

func withSSLDisabled(url string) string {
	if strings.Contains(url, "?") {
		return url + "&sslmode=disable"
	}
	return url + "?sslmode=disable"
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Migration is one NNN_name.sql file.
type Migration struct {
	Number int
	Name   string
	SQL    string
}

// RunMigrations applies every not-yet-applied migration in dir, in number
// order, each in its own transaction. Applied versions are tracked in
// schema_migrations.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	migrations, err := ReadMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if len(migrations) == 0 {
		log.Println("no migrations found")
		return nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		if err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.Number,
		).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Number, err)
		}
		if applied {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return err
		}
		log.Printf("migration %d (%s) applied", m.Number, m.Name)
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

// ReadMigrations loads NNN_name.sql files from dir sorted by number. Files
// without a numeric prefix are skipped.
func ReadMigrations(dir string) ([]Migration, error) {
	var out []Migration
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		num, name, ok := strings.Cut(d.Name(), "_")
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", d.Name(), err)
		}
		out = append(out, Migration{Number: n, Name: strings.TrimSuffix(name, ".sql"), SQL: string(b)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
