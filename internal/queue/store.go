package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fetchd/internal/config"
	"fetchd/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// Tracked through PRAGMA user_version; 0 means an uninitialized database.
const schemaVersion = 1

// Store persists the queue as an ordered snapshot in SQLite. The position
// column is the authoritative scheduling order; Save rewrites the whole
// table in one transaction after every mutating Manager operation.
type Store struct {
	db         *sql.DB
	path       string
	backupPath string
	logger     *slog.Logger
}

// Open initializes the queue database, falling back to the backup copy when
// the primary is unreadable or corrupt, and to an empty database when no
// usable copy exists. It never refuses to start over bad state; the broken
// file is moved aside and logged.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	log := logging.WithComponent(logger, "queue-store")

	dbPath := cfg.QueueDBPath()
	backupPath := cfg.QueueBackupPath()

	db, err := openVerified(dbPath)
	if err != nil {
		log.Warn("primary queue database unusable", "path", dbPath, "error", err)
		quarantine(dbPath)

		if _, statErr := os.Stat(backupPath); statErr == nil {
			if copyErr := copyFile(backupPath, dbPath); copyErr != nil {
				log.Warn("restore from backup failed", "backup", backupPath, "error", copyErr)
			} else if db, err = openVerified(dbPath); err == nil {
				log.Info("queue database restored from backup", "backup", backupPath)
			} else {
				log.Warn("backup queue database unusable", "backup", backupPath, "error", err)
				quarantine(dbPath)
			}
		}

		if db == nil || err != nil {
			db, err = openVerified(dbPath)
			if err != nil {
				return nil, fmt.Errorf("initialize empty queue database: %w", err)
			}
			log.Warn("starting with an empty queue", "path", dbPath)
		}
	}

	return &Store{db: db, path: dbPath, backupPath: backupPath, logger: log}, nil
}

func openVerified(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	var integrity string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if !strings.EqualFold(integrity, "ok") {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check failed: %s", integrity)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch version {
	case schemaVersion:
		return nil
	case 0:
		if _, err := db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("queue database has schema version %d, want %d", version, schemaVersion)
	}
}

// quarantine moves a broken database file aside so a fresh one can be created.
func quarantine(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = os.Rename(path, path+".corrupt")
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the primary database location.
func (s *Store) Path() string {
	return s.path
}

// BackupPath returns the backup database location.
func (s *Store) BackupPath() string {
	return s.backupPath
}

// Load reads the full item snapshot in stored order.
func (s *Store) Load(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM queue_items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Save rewrites the full item snapshot. Slice order becomes the stored
// position order.
func (s *Store) Save(ctx context.Context, items []*Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO queue_items (
        position, id, requester_id, requester_name, source_url, job_kind,
        priority, status, created_at, started_at, completed_at, error_message,
        progress, retry_count, max_retries, params_json
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for position, item := range items {
		paramsJSON, err := encodeParams(item.Params)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			position,
			item.ID,
			item.RequesterID,
			nullableString(item.RequesterName),
			item.SourceURL,
			string(item.Kind),
			string(item.Priority),
			string(item.Status),
			item.CreatedAt.UTC().Format(time.RFC3339Nano),
			nullableTime(item.StartedAt),
			nullableTime(item.CompletedAt),
			nullableString(item.ErrorMessage),
			item.Progress,
			item.RetryCount,
			item.MaxRetries,
			nullableString(paramsJSON),
		); err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Backup checkpoints the WAL and copies the database file to the backup path.
func (s *Store) Backup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint before backup: %w", err)
	}
	if err := copyFile(s.path, s.backupPath); err != nil {
		return fmt.Errorf("copy queue database to backup: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

const itemColumns = "position, id, requester_id, requester_name, source_url, job_kind, priority, status, created_at, started_at, completed_at, error_message, progress, retry_count, max_retries, params_json"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		position      int64
		id            string
		requesterID   int64
		requesterName sql.NullString
		sourceURL     string
		kindStr       string
		priorityStr   string
		statusStr     string
		createdRaw    string
		startedRaw    sql.NullString
		completedRaw  sql.NullString
		errorMessage  sql.NullString
		progress      float64
		retryCount    int
		maxRetries    int
		paramsJSON    sql.NullString
	)

	if err := scanner.Scan(
		&position,
		&id,
		&requesterID,
		&requesterName,
		&sourceURL,
		&kindStr,
		&priorityStr,
		&statusStr,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&errorMessage,
		&progress,
		&retryCount,
		&maxRetries,
		&paramsJSON,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		RequesterID:   requesterID,
		RequesterName: requesterName.String,
		SourceURL:     sourceURL,
		Kind:          JobKind(kindStr),
		Priority:      Priority(priorityStr),
		Status:        Status(statusStr),
		ErrorMessage:  errorMessage.String,
		Progress:      progress,
		RetryCount:    retryCount,
		MaxRetries:    maxRetries,
	}

	created, err := parseTimeString(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", id, err)
	}
	item.CreatedAt = created

	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}

	params, err := decodeParams(item.Kind, paramsJSON.String)
	if err != nil {
		return nil, fmt.Errorf("decode params for %s: %w", id, err)
	}
	item.Params = params

	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
