// Package database provides the schema migrator for the event log and
// snapshot store. Migrations are plain SQL files embedded at build time.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration represents a single versioned schema change.
type Migration struct {
	Version     int
	Name        string
	Description string
	UpSQL       string
	DownSQL     string
	AppliedAt   *time.Time
}

// Migrator applies or rolls back migrations against a *sql.DB opened with
// the "pgx" driver.
type Migrator struct {
	db      *sql.DB
	dryRun  bool
	verbose bool
}

// NewMigrator creates a new migrator instance.
func NewMigrator(db *sql.DB, options ...MigratorOption) *Migrator {
	m := &Migrator{db: db}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// MigratorOption configures the migrator.
type MigratorOption func(*Migrator)

// WithDryRun enables dry-run mode (no actual changes).
func WithDryRun(dryRun bool) MigratorOption {
	return func(m *Migrator) { m.dryRun = dryRun }
}

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) MigratorOption {
	return func(m *Migrator) { m.verbose = verbose }
}

// Initialize creates the migrations tracking table.
func (m *Migrator) Initialize() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		execution_time_ms INTEGER
	);
	`

	if m.dryRun {
		m.log("DRY RUN: would create schema_migrations table")
		return nil
	}

	if _, err := m.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("database: create schema_migrations table: %w", err)
	}
	m.log("initialized schema_migrations table")
	return nil
}

// LoadMigrations loads all embedded migration files, sorted by version.
func (m *Migrator) LoadMigrations() ([]*Migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("database: read embedded migrations: %w", err)
	}

	var migrations []*Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		migration, err := m.parseMigrationFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("database: parse migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func (m *Migrator) parseMigrationFile(filename string) (*Migration, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
		return nil, fmt.Errorf("failed to parse version from filename %s: %w", filename, err)
	}

	content, err := migrationsFS.ReadFile(filepath.Join("migrations", filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file: %w", err)
	}

	sqlContent := string(content)
	upSQL, downSQL := m.splitMigrationSQL(sqlContent)
	name := strings.TrimSuffix(filename, ".sql")
	description := m.extractDescription(sqlContent)

	return &Migration{
		Version:     version,
		Name:        name,
		Description: description,
		UpSQL:       upSQL,
		DownSQL:     downSQL,
	}, nil
}

func (m *Migrator) splitMigrationSQL(content string) (up, down string) {
	downMarker := "-- DOWN Migration"
	downIndex := strings.Index(content, downMarker)
	if downIndex == -1 {
		return content, ""
	}
	up = content[:downIndex]
	down = content[downIndex:]
	return strings.TrimSpace(up), strings.TrimSpace(down)
}

func (m *Migrator) extractDescription(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return ""
}

// GetAppliedMigrations returns the set of already-applied migrations.
func (m *Migrator) GetAppliedMigrations() (map[int]*Migration, error) {
	applied := make(map[int]*Migration)

	rows, err := m.db.Query(`SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		migration := &Migration{}
		if err := rows.Scan(&migration.Version, &migration.Name, &migration.Description, &migration.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[migration.Version] = migration
	}
	return applied, rows.Err()
}

// Up runs pending migrations in order.
func (m *Migrator) Up() error {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	pending := 0
	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; !ok {
			pending++
		}
	}
	if pending == 0 {
		m.log("database is up to date, no pending migrations")
		return nil
	}
	m.log(fmt.Sprintf("running %d pending migration(s)", pending))

	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; ok {
			m.logVerbose(fmt.Sprintf("skipping migration %d (already applied)", migration.Version))
			continue
		}
		if err := m.runMigration(migration, true); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
	}
	m.log("all migrations completed")
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down() error {
	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		m.log("no migrations to roll back")
		return nil
	}

	maxVersion := 0
	for version := range applied {
		if version > maxVersion {
			maxVersion = version
		}
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}
	var toRollback *Migration
	for _, migration := range migrations {
		if migration.Version == maxVersion {
			toRollback = migration
			break
		}
	}
	if toRollback == nil {
		return fmt.Errorf("migration file for version %d not found", maxVersion)
	}
	if toRollback.DownSQL == "" {
		return fmt.Errorf("migration %d has no DOWN section", maxVersion)
	}

	m.log(fmt.Sprintf("rolling back migration %d: %s", maxVersion, toRollback.Name))
	return m.runMigration(toRollback, false)
}

func (m *Migrator) runMigration(migration *Migration, up bool) error {
	direction := "UP"
	stmt := migration.UpSQL
	if !up {
		direction = "DOWN"
		stmt = migration.DownSQL
	}
	m.log(fmt.Sprintf("running migration %d (%s): %s", migration.Version, direction, migration.Name))

	if m.dryRun {
		m.log(fmt.Sprintf("DRY RUN: would execute migration %d", migration.Version))
		m.logVerbose(fmt.Sprintf("SQL:\n%s", stmt))
		return nil
	}

	start := time.Now()
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	elapsedMs := time.Since(start).Milliseconds()
	if up {
		_, err = tx.Exec(`INSERT INTO schema_migrations (version, name, description, execution_time_ms) VALUES ($1, $2, $3, $4)`,
			migration.Version, migration.Name, migration.Description, elapsedMs)
	} else {
		_, err = tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, migration.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to update schema_migrations: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	m.log(fmt.Sprintf("completed migration %d in %dms", migration.Version, elapsedMs))
	return nil
}

// Status prints the applied/pending state of every known migration.
func (m *Migrator) Status() error {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-40s %-12s %-20s\n", "Version", "Name", "Status", "Applied At")
	fmt.Println(strings.Repeat("-", 85))
	for _, migration := range migrations {
		status := "Pending"
		appliedAt := "-"
		if am, ok := applied[migration.Version]; ok {
			status = "Applied"
			if am.AppliedAt != nil {
				appliedAt = am.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Printf("%-10d %-40s %-12s %-20s\n", migration.Version, migration.Name, status, appliedAt)
	}
	fmt.Printf("\ntotal: %d applied: %d pending: %d\n", len(migrations), len(applied), len(migrations)-len(applied))
	return nil
}

func (m *Migrator) log(message string) { log.Println(message) }

func (m *Migrator) logVerbose(message string) {
	if m.verbose {
		log.Println(message)
	}
}

// Connect opens a pooled connection to Postgres via the pgx stdlib driver.
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}
