package library

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store persists the local book index backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if necessary) the book index at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open book index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk index location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: index has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// List returns every indexed book in insertion order.
func (s *Store) List(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT device_id, library_id, path, title, authors, size, mod_time, tags FROM books ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var book Book
		var authors, tags, modTime string
		if err := rows.Scan(&book.DeviceID, &book.LibraryID, &book.Path, &book.Title,
			&authors, &book.Size, &modTime, &tags); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		book.Authors = decodeStrings(authors)
		book.Tags = decodeStrings(tags)
		if modTime != "" {
			if parsed, err := time.Parse(time.RFC3339, modTime); err == nil {
				book.ModTime = parsed
			}
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// Replace swaps the entire index for the provided collection in one
// transaction.
func (s *Store) Replace(ctx context.Context, books []Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM books"); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	for _, book := range books {
		if err := insertBook(ctx, tx, book); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Add appends books that are not already present under any identity tier.
func (s *Store) Add(ctx context.Context, books ...Book) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, book := range books {
		if contains(existing, book) {
			continue
		}
		if err := insertBook(ctx, tx, book); err != nil {
			return err
		}
		existing = append(existing, book)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add: %w", err)
	}
	return nil
}

func insertBook(ctx context.Context, tx *sql.Tx, book Book) error {
	modTime := ""
	if !book.ModTime.IsZero() {
		modTime = book.ModTime.UTC().Format(time.RFC3339)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO books (device_id, library_id, path, title, authors, size, mod_time, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.DeviceID, book.LibraryID, book.Path, book.Title,
		encodeStrings(book.Authors), book.Size, modTime, encodeStrings(book.Tags))
	if err != nil {
		return fmt.Errorf("insert book %q: %w", book.Title, err)
	}
	return nil
}

func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(encoded string) []string {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || encoded == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil
	}
	return values
}
