package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported SQL drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS apps (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	installer_source_url TEXT,
	installer_type TEXT,
	silent_arguments TEXT,
	winget_id TEXT,
	official_download_url TEXT,
	official_website_url TEXT
)`

const selectColumns = `id, name, installer_source_url, installer_type, silent_arguments, winget_id, official_download_url, official_website_url`

// SQLLookup reads catalog items from the apps table
type SQLLookup struct {
	db     *sql.DB
	driver string
}

// OpenDB opens and pings a catalog database
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrInvalidCatalog, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return db, nil
}

// NewSQLLookup creates a lookup over db using the placeholder style of driver
func NewSQLLookup(db *sql.DB, driver string) *SQLLookup {
	return &SQLLookup{db: db, driver: driver}
}

// DB returns the underlying handle
func (l *SQLLookup) DB() *sql.DB {
	return l.db
}

// EnsureSchema creates the apps table if it does not exist
func (l *SQLLookup) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create apps table: %w", err)
	}
	return nil
}

func (l *SQLLookup) placeholder(n int) string {
	if l.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (l *SQLLookup) placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = l.placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// GetItemsByIDs implements Lookup
func (l *SQLLookup) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	ids = Unique(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM apps WHERE id IN (%s)", selectColumns, l.placeholders(1, len(ids)))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item                                              Item
			source, format, silent, winget, download, website sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Name, &source, &format, &silent, &winget, &download, &website); err != nil {
			return nil, fmt.Errorf("failed to scan app row: %w", err)
		}
		item.DirectSourceURL = source.String
		item.PackageFormat = format.String
		item.SilentArgs = silent.String
		item.PackageManagerID = winget.String
		item.OfficialDownloadURL = download.String
		item.OfficialWebsiteURL = website.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return items, nil
}

// Upsert inserts or replaces items in one transaction
func (l *SQLLookup) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO apps (%s) VALUES (%s)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	installer_source_url = excluded.installer_source_url,
	installer_type = excluded.installer_type,
	silent_arguments = excluded.silent_arguments,
	winget_id = excluded.winget_id,
	official_download_url = excluded.official_download_url,
	official_website_url = excluded.official_website_url`, selectColumns, l.placeholders(1, 8))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx,
			item.ID,
			item.Name,
			nullIfEmpty(item.DirectSourceURL),
			nullIfEmpty(item.PackageFormat),
			nullIfEmpty(item.SilentArgs),
			nullIfEmpty(item.PackageManagerID),
			nullIfEmpty(item.OfficialDownloadURL),
			nullIfEmpty(item.OfficialWebsiteURL),
		); err != nil {
			return fmt.Errorf("failed to upsert app %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
