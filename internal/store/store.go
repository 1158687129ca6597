package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Store is a collection-oriented vector store rooted at a directory.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	dir    string
	opts   Options
	ann    map[string]*annIndex
	closed bool
}

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return open(dir, opts)
}

// OpenExisting opens the store in dir without creating anything.
// It returns ErrStoreNotFound if dir holds no database.
func OpenExisting(dir string, opts Options) (*Store, error) {
	if _, err := os.Stat(filepath.Join(dir, DBFileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("stat vector store: %w", err)
	}
	return open(dir, opts)
}

func open(dir string, opts Options) (*Store, error) {
	if opts.Index == "" {
		opts.Index = IndexFlat
	}
	if opts.ExactBelow == 0 {
		opts.ExactBelow = DefaultExactBelow
	}
	if opts.Index != IndexHNSW && opts.Index != IndexFlat {
		return nil, fmt.Errorf("unknown index mode %q", opts.Index)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN params, so pragmas are set explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{
		db:   db,
		dir:  dir,
		opts: opts,
		ann:  make(map[string]*annIndex),
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		dimension  INTEGER NOT NULL,
		model      TEXT NOT NULL,
		generation INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- metadata is a JSON object, embedding is little-endian float32
	CREATE TABLE IF NOT EXISTS chunks (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		text       TEXT NOT NULL,
		metadata   TEXT NOT NULL,
		embedding  BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_path
		ON chunks(collection, json_extract(metadata, '$.file_path'));

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close closes the database. Sidecars are written when graphs are built.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.ann = nil
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// validCollectionName rejects names that cannot be used as sidecar file names.
func validCollectionName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		slog.Debug("unparseable timestamp in store", slog.String("value", s))
		return time.Time{}
	}
	return t
}

// GetOrCreateCollection returns the named collection, creating it if needed.
// An existing collection with a different dimension is an ErrDimensionMismatch.
// A different model is recorded and logged.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string, dim int, model string) (*Collection, error) {
	if err := validCollectionName(name); err != nil {
		return nil, err
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	existing, err := s.getCollection(ctx, name)
	switch {
	case err == nil:
		if existing.Dimension != dim {
			return nil, ErrDimensionMismatch{Expected: existing.Dimension, Got: dim}
		}
		if existing.Model != model {
			slog.Warn("collection model changed",
				slog.String("collection", name),
				slog.String("previous", existing.Model),
				slog.String("current", model))
			if _, err := s.db.ExecContext(ctx,
				`UPDATE collections SET model = ? WHERE name = ?`, model, name); err != nil {
				return nil, fmt.Errorf("update collection model: %w", err)
			}
			existing.Model = model
		}
		return existing, nil
	case !errors.Is(err, ErrCollectionNotFound):
		return nil, err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, model, generation, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		name, dim, model, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	slog.Debug("collection created", slog.String("collection", name), slog.Int("dimension", dim))
	return &Collection{Name: name, Dimension: dim, Model: model, CreatedAt: now.UTC(), UpdatedAt: now.UTC()}, nil
}

// GetCollection returns the named collection or ErrCollectionNotFound.
func (s *Store) GetCollection(ctx context.Context, name string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.getCollection(ctx, name)
}

func (s *Store) getCollection(ctx context.Context, name string) (*Collection, error) {
	var (
		c                Collection
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, dimension, model, generation, created_at, updated_at
		 FROM collections WHERE name = ?`, name).
		Scan(&c.Name, &c.Dimension, &c.Model, &c.generation, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

// ListCollections returns all collection names, sorted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
